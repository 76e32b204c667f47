// Package dataset resolves dataset and certificate sources to local bytes
// before they are handed to the upload client. Sources may be local paths,
// http(s) URLs, or sftp URLs on a load-generator host.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// DefaultConnectTimeout bounds SSH connection establishment for sftp
// sources.
const DefaultConnectTimeout = 30 * time.Second

// ErrTooLarge wraps all size-limit rejections.
var ErrTooLarge = fmt.Errorf("file exceeds size limit")

// File is a resolved source: a name suitable for a multipart filename plus
// its content.
type File struct {
	Name    string
	Content []byte
}

// Resolver fetches files from the supported source kinds.
type Resolver struct {
	httpClient     *http.Client
	sshUser        string
	sshPrivateKey  []byte
	connectTimeout time.Duration
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHTTPClient sets a custom HTTP client for URL sources.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Resolver) {
		r.httpClient = hc
	}
}

// WithSSHCredentials sets the user and PEM private key used for sftp
// sources.
func WithSSHCredentials(user string, privateKey []byte) Option {
	return func(r *Resolver) {
		r.sshUser = user
		r.sshPrivateKey = privateKey
	}
}

// WithConnectTimeout bounds SSH connection establishment.
func WithConnectTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.connectTimeout = d
	}
}

// NewResolver creates a source resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches a source, enforcing maxSize. Oversized files are rejected
// before (local, sftp) or while (http) transferring; the returned content is
// never larger than maxSize.
func (r *Resolver) Resolve(ctx context.Context, source string, maxSize int64) (*File, error) {
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return r.resolveHTTP(ctx, source, maxSize)
	case strings.HasPrefix(source, "sftp://"):
		return r.resolveSFTP(ctx, source, maxSize)
	default:
		return resolveLocal(source, maxSize)
	}
}

func resolveLocal(source string, maxSize int64) (*File, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("source is a directory, not a file: %s", source)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, source, info.Size(), maxSize)
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	return &File{Name: filepath.Base(source), Content: content}, nil
}

func (r *Resolver) resolveHTTP(ctx context.Context, source string, maxSize int64) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source fetch failed with status %d", resp.StatusCode)
	}
	if resp.ContentLength > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, source, resp.ContentLength, maxSize)
	}

	content, err := readLimited(resp.Body, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, source)
	}

	u, _ := url.Parse(source)
	name := "download"
	if u != nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
		name = path.Base(u.Path)
	}
	return &File{Name: name, Content: content}, nil
}

func (r *Resolver) resolveSFTP(ctx context.Context, source string, maxSize int64) (*File, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid sftp url: %w", err)
	}
	if len(r.sshPrivateKey) == 0 {
		return nil, fmt.Errorf("sftp source requires SSH credentials")
	}

	user := r.sshUser
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	if user == "" {
		return nil, fmt.Errorf("sftp source requires a user")
	}

	host := u.Host
	if u.Port() == "" {
		host += ":22"
	}

	signer, err := ssh.ParsePrivateKey(r.sshPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		// Load-generator hosts are ephemeral with dynamic host keys.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.connectTimeout,
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client, err := ssh.Dial("tcp", host, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", host, err)
	}
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer sftpClient.Close()

	info, err := sftpClient.Stat(u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat remote file: %w", err)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, source, info.Size(), maxSize)
	}

	remote, err := sftpClient.Open(u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote file: %w", err)
	}
	defer remote.Close()

	content, err := readLimited(remote, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, source)
	}
	return &File{Name: path.Base(u.Path), Content: content}, nil
}

// readLimited reads at most maxSize bytes, failing if the stream has more.
func readLimited(rd io.Reader, maxSize int64) ([]byte, error) {
	content, err := io.ReadAll(io.LimitReader(rd, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	if int64(len(content)) > maxSize {
		return nil, ErrTooLarge
	}
	return content, nil
}
