// Package ftp wraps the printers' implicit-TLS FTPS file channel.
package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/bambui-io/bambui/pkg/options"
)

// printableSuffixes lists the archive types the firmware can print
// directly.
var printableSuffixes = []string{".3mf"}

// Entry describes one file or directory on the printer's storage.
type Entry struct {
	Name      string    `json:"name"`
	Size      uint64    `json:"size"`
	Modified  time.Time `json:"modified"`
	Dir       bool      `json:"dir"`
	Printable bool      `json:"printable"`
}

// Client is one logged-in FTPS connection. Connections are cheap and
// short-lived: dial, do the operation, Quit.
type Client struct {
	conn *ftp.ServerConn
}

// Dial opens an implicit-TLS connection to the printer and logs in with
// its access code.
func Dial(ctx context.Context, host, accessCode string, opts *options.FtpOptions) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(opts.Port))
	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(opts.Timeout),
		// Printers present self-signed certificates.
		ftp.DialWithTLS(&tls.Config{InsecureSkipVerify: true}),
	)
	if err != nil {
		return nil, fmt.Errorf("ftps dial %s: %w", addr, err)
	}
	if err := conn.Login(opts.Username, accessCode); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, fmt.Errorf("ftps login %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// List returns the entries under dir.
func (c *Client) List(dir string) ([]Entry, error) {
	raw, err := c.conn.List(dir)
	if err != nil {
		return nil, fmt.Errorf("ftps list %q: %w", dir, err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, Entry{
			Name:      e.Name,
			Size:      e.Size,
			Modified:  e.Time,
			Dir:       e.Type == ftp.EntryTypeFolder,
			Printable: e.Type == ftp.EntryTypeFile && Printable(e.Name),
		})
	}
	return entries, nil
}

// Upload stores r under name on the printer.
func (c *Client) Upload(name string, r io.Reader) error {
	return c.conn.Stor(name, r)
}

// Delete removes a file from the printer.
func (c *Client) Delete(name string) error {
	return c.conn.Delete(name)
}

// Quit closes the connection.
func (c *Client) Quit() error {
	return c.conn.Quit()
}

// Printable reports whether the firmware can print the named file as-is.
func Printable(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, suffix := range printableSuffixes {
		if ext == suffix {
			return true
		}
	}
	return false
}
