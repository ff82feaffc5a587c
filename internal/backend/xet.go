package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"xetgo/internal/xetfs"
)

// Xet is a client for the content-addressed xet service. All engine work
// (chunking, deduplication, branch storage) happens service-side; this
// handle only drives the service's HTTP API. Paths have the form
// user/repo[/branch[/path...]].
type Xet struct {
	protocol string
	domain   string
	token    string
	httpc    *http.Client

	mu   sync.Mutex
	txID string // active transaction id, empty when idle
}

// NewXet creates a handle scoped to the given service domain. token may be
// empty for anonymous access to public repositories.
func NewXet(domain, token string) *Xet {
	return &Xet{
		protocol: "xet",
		domain:   strings.TrimRight(domain, "/"),
		token:    token,
		httpc:    &http.Client{},
	}
}

func (x *Xet) Protocol() string { return x.protocol }

// Domain returns the root URI namespace of the service.
func (x *Xet) Domain() string { return x.domain }

// apiURL builds an API endpoint URL with optional query parameters.
func (x *Xet) apiURL(endpoint string, query url.Values) string {
	u := x.domain + "/api/v1/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON performs an API request with a JSON body and decodes a JSON
// response into out when out is non-nil.
func (x *Xet) doJSON(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := x.doRaw(ctx, method, u, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// doRaw performs an API request and returns the response on 2xx status.
// Mutations issued inside a transaction carry the transaction id so the
// service attributes them to its audit message.
func (x *Xet) doRaw(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if x.token != "" {
		req.Header.Set("Authorization", "Bearer "+x.token)
	}
	x.mu.Lock()
	if x.txID != "" {
		req.Header.Set("X-Xet-Transaction", x.txID)
	}
	x.mu.Unlock()

	resp, err := x.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, u, err)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %s: %s", method, u, resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

// entryPayload is the wire form of entry metadata.
type entryPayload struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

func (p entryPayload) toEntryInfo() xetfs.EntryInfo {
	t := xetfs.TypeFile
	if p.Type == "directory" {
		t = xetfs.TypeDirectory
	}
	return xetfs.EntryInfo{Path: p.Path, Type: t, Size: p.Size}
}

func (x *Xet) Info(ctx context.Context, path string) (xetfs.EntryInfo, error) {
	var payload entryPayload
	u := x.apiURL("info", url.Values{"path": {path}})
	if err := x.doJSON(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return xetfs.EntryInfo{}, err
	}
	return payload.toEntryInfo(), nil
}

func (x *Xet) IsDir(ctx context.Context, path string) (bool, error) {
	info, err := x.Info(ctx, path)
	if err != nil {
		return false, nil // missing paths are not directories
	}
	return info.Type == xetfs.TypeDirectory, nil
}

// IsDirOrBranch additionally treats a branch root as directory-like.
func (x *Xet) IsDirOrBranch(ctx context.Context, path string) (bool, error) {
	xp, err := xetfs.ParseXetPath(path)
	if err == nil && xp.IsBranchRoot() {
		if _, berr := x.BranchInfo(ctx, path); berr == nil {
			return true, nil
		}
	}
	return x.IsDir(ctx, path)
}

func (x *Xet) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := x.doRaw(ctx, http.MethodGet, x.fileURL(path), nil, "")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (x *Xet) fileURL(path string) string {
	return x.domain + "/api/v1/files/" + url.PathEscape(strings.TrimPrefix(path, "/"))
}

func (x *Xet) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &xetWriter{pw: pw, done: make(chan error, 1)}
	go func() {
		resp, err := x.doRaw(ctx, http.MethodPut, x.fileURL(path), pr, "application/octet-stream")
		if err != nil {
			pr.CloseWithError(err)
			w.done <- err
			return
		}
		resp.Body.Close()
		w.done <- nil
	}()
	return w, nil
}

// xetWriter streams an upload through a pipe. Close finishes the request
// and surfaces its result.
type xetWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *xetWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *xetWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	if err := <-w.done; err != nil {
		return fmt.Errorf("finishing upload: %w", err)
	}
	return nil
}

func (x *Xet) Enumerate(ctx context.Context, path string) (map[string]xetfs.EntryInfo, error) {
	var payload struct {
		Entries []entryPayload `json:"entries"`
	}
	u := x.apiURL("find", url.Values{"path": {path}})
	if err := x.doJSON(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return nil, err
	}
	entries := make(map[string]xetfs.EntryInfo, len(payload.Entries))
	for _, e := range payload.Entries {
		entries[e.Path] = e.toEntryInfo()
	}
	return entries, nil
}

func (x *Xet) Glob(ctx context.Context, pattern string) (map[string]xetfs.EntryInfo, error) {
	var payload struct {
		Entries []entryPayload `json:"entries"`
	}
	u := x.apiURL("glob", url.Values{"pattern": {pattern}})
	if err := x.doJSON(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return nil, err
	}
	entries := make(map[string]xetfs.EntryInfo, len(payload.Entries))
	for _, e := range payload.Entries {
		entries[e.Path] = e.toEntryInfo()
	}
	return entries, nil
}

func (x *Xet) MakeDirs(ctx context.Context, path string) error {
	return x.doJSON(ctx, http.MethodPost, x.apiURL("mkdirs", nil),
		map[string]string{"path": path}, nil)
}

func (x *Xet) Move(ctx context.Context, src, dst string) error {
	return x.doJSON(ctx, http.MethodPost, x.apiURL("move", nil),
		map[string]string{"src": src, "dst": dst}, nil)
}

func (x *Xet) Remove(ctx context.Context, path string) error {
	return x.doJSON(ctx, http.MethodDelete, x.apiURL("files", url.Values{"path": {path}}), nil, nil)
}

// BeginTransaction opens a service-side transaction. At most one
// transaction may be active per handle.
func (x *Xet) BeginTransaction(ctx context.Context, message string) error {
	x.mu.Lock()
	active := x.txID != ""
	x.mu.Unlock()
	if active {
		return fmt.Errorf("transaction already active")
	}

	var payload struct {
		ID string `json:"id"`
	}
	err := x.doJSON(ctx, http.MethodPost, x.apiURL("transactions", nil),
		map[string]string{"message": message}, &payload)
	if err != nil {
		return err
	}

	x.mu.Lock()
	x.txID = payload.ID
	x.mu.Unlock()
	return nil
}

func (x *Xet) EndTransaction(ctx context.Context) error {
	x.mu.Lock()
	id := x.txID
	x.mu.Unlock()
	if id == "" {
		return fmt.Errorf("no active transaction")
	}

	err := x.doJSON(ctx, http.MethodPost, x.apiURL("transactions/"+url.PathEscape(id)+"/end", nil), nil, nil)

	// The handle goes idle even if the service call failed; the service
	// expires orphaned transactions on its own.
	x.mu.Lock()
	x.txID = ""
	x.mu.Unlock()
	return err
}

func (x *Xet) BranchInfo(ctx context.Context, path string) (xetfs.BranchInfo, error) {
	xp, err := xetfs.ParseXetPath(path)
	if err != nil {
		return xetfs.BranchInfo{}, err
	}
	if xp.Branch == "" {
		return xetfs.BranchInfo{}, fmt.Errorf("no branch in path: %s", path)
	}

	var payload struct {
		Branch string `json:"branch"`
		Commit string `json:"commit"`
	}
	u := x.apiURL("repos/"+xp.User+"/"+xp.Repo+"/branches/"+url.PathEscape(xp.Branch), nil)
	if err := x.doJSON(ctx, http.MethodGet, u, nil, &payload); err != nil {
		return xetfs.BranchInfo{}, err
	}
	return xetfs.BranchInfo{Repo: xp.RepoPath(), Branch: payload.Branch, Commit: payload.Commit}, nil
}

// CopyFile performs a reference-based copy service-side; no data moves
// through the client.
func (x *Xet) CopyFile(ctx context.Context, src, dst string) error {
	return x.doJSON(ctx, http.MethodPost, x.apiURL("copy", nil),
		map[string]any{"src": src, "dst": dst}, nil)
}

func (x *Xet) CopyDirectory(ctx context.Context, src, dst string) error {
	return x.doJSON(ctx, http.MethodPost, x.apiURL("copy", nil),
		map[string]any{"src": src, "dst": dst, "recursive": true}, nil)
}

// PrepareDedupeHints asks the service to preload chunk manifests relevant
// to an upcoming large write at path.
func (x *Xet) PrepareDedupeHints(ctx context.Context, path string) error {
	return x.doJSON(ctx, http.MethodPost, x.apiURL("dedupe-hints", nil),
		map[string]string{"path": path}, nil)
}

func (x *Xet) DuplicateRepository(ctx context.Context, src, dst string) error {
	return x.doJSON(ctx, http.MethodPost, x.apiURL("repos/duplicate", nil),
		map[string]string{"src": src, "dst": dst}, nil)
}

func (x *Xet) SetRepositoryAttribute(ctx context.Context, path, attr string, value bool) error {
	xp, err := xetfs.ParseXetPath(path)
	if err != nil {
		return err
	}
	return x.doJSON(ctx, http.MethodPatch, x.apiURL("repos/"+xp.User+"/"+xp.Repo, nil),
		map[string]any{"attribute": attr, "value": value}, nil)
}

func (x *Xet) CurrentUser(ctx context.Context) (string, error) {
	var payload struct {
		Username string `json:"username"`
	}
	if err := x.doJSON(ctx, http.MethodGet, x.apiURL("user", nil), nil, &payload); err != nil {
		return "", err
	}
	return payload.Username, nil
}

// Mount forwards a mount request to the external mount service.
func (x *Xet) Mount(ctx context.Context, path, localPath string, prefetch bool) error {
	xp, err := xetfs.ParseXetPath(path)
	if err != nil {
		return err
	}
	return x.doJSON(ctx, http.MethodPost, x.apiURL("mounts", nil), map[string]any{
		"repo":     xp.RepoPath(),
		"branch":   xp.Branch,
		"path":     localPath,
		"prefetch": prefetch,
	}, nil)
}

var (
	_ xetfs.Backend              = (*Xet)(nil)
	_ xetfs.TransactionalBackend = (*Xet)(nil)
	_ xetfs.Mounter              = (*Xet)(nil)
)
