package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strconv"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"xetgo/internal/config"
	"xetgo/internal/xetfs"
)

// SFTP is a remote-filesystem backend over SSH. Paths are absolute paths
// on the configured host.
type SFTP struct {
	protocol string
	conn     *ssh.Client
	client   *sftp.Client
}

// NewSFTP dials the configured host and opens an SFTP session. The handle
// holds the connection until Close.
func NewSFTP(cfg config.SFTPConfig) (*SFTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("sftp backend requires a host")
	}

	var auth []ssh.AuthMethod
	if cfg.KeyPath != "" {
		keyData, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("parsing ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("sftp backend requires a password or key_path")
	}

	hostKeys := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via empty known_hosts_path
	if cfg.KnownHostsPath != "" {
		cb, err := knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts: %w", err)
		}
		hostKeys = cb
	}

	port := cfg.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	conn, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening sftp session: %w", err)
	}

	return &SFTP{protocol: "sftp", conn: conn, client: client}, nil
}

func (b *SFTP) Protocol() string { return b.protocol }

// Close releases the SFTP session and the underlying SSH connection.
func (b *SFTP) Close() error {
	cerr := b.client.Close()
	if err := b.conn.Close(); err != nil && cerr == nil {
		cerr = err
	}
	return cerr
}

func (b *SFTP) Info(_ context.Context, p string) (xetfs.EntryInfo, error) {
	fi, err := b.client.Stat(p)
	if err != nil {
		return xetfs.EntryInfo{}, fmt.Errorf("stat %s: %w", p, err)
	}
	return entryFromFileInfo(p, fi), nil
}

func (b *SFTP) IsDir(_ context.Context, p string) (bool, error) {
	fi, err := b.client.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	return fi.IsDir(), nil
}

func (b *SFTP) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f, err := b.client.Open(p)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", p, err)
	}
	return f, nil
}

func (b *SFTP) Create(_ context.Context, p string) (io.WriteCloser, error) {
	if err := b.client.MkdirAll(path.Dir(p)); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}
	f, err := b.client.Create(p)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", p, err)
	}
	return f, nil
}

func (b *SFTP) Enumerate(_ context.Context, root string) (map[string]xetfs.EntryInfo, error) {
	entries := make(map[string]xetfs.EntryInfo)
	walker := b.client.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
		p := walker.Path()
		if p == root {
			continue
		}
		entries[p] = entryFromFileInfo(p, walker.Stat())
	}
	return entries, nil
}

func (b *SFTP) Glob(_ context.Context, pattern string) (map[string]xetfs.EntryInfo, error) {
	matches, err := b.client.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern, err)
	}
	entries := make(map[string]xetfs.EntryInfo, len(matches))
	for _, m := range matches {
		fi, err := b.client.Stat(m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		entries[m] = entryFromFileInfo(m, fi)
	}
	return entries, nil
}

func (b *SFTP) MakeDirs(_ context.Context, p string) error {
	return b.client.MkdirAll(p)
}

func (b *SFTP) Move(_ context.Context, src, dst string) error {
	if err := b.client.PosixRename(src, dst); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", src, dst, err)
	}
	return nil
}

func (b *SFTP) Remove(_ context.Context, p string) error {
	if err := b.client.Remove(p); err != nil {
		return fmt.Errorf("removing %s: %w", p, err)
	}
	return nil
}

var _ xetfs.Backend = (*SFTP)(nil)
