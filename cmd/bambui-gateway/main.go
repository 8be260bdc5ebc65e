package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/bambui-io/bambui/cmd/bambui-gateway/app"
)

func main() {
	app.NewApp().Run()
}
