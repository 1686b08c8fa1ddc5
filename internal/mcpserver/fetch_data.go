package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/dataforge/internal/importer"
)

const (
	maxFetchSize = 50 << 20 // 50 MB
	downloadDir  = "downloads"
)

var (
	mimeToExt = map[string]string{
		"text/csv":                  ".csv",
		"application/csv":           ".csv",
		"text/tab-separated-values": ".tsv",
		"application/json":          ".json",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ".xlsx",
		"application/vnd.ms-excel":                                          ".xls",
		"application/vnd.apache.parquet":                                    ".parquet",
		"application/x-parquet":                                             ".parquet",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

type fetchResult struct {
	SavedPath    string `json:"savedPath"`
	DataSourceID string `json:"dataSourceId"`
	Columns      int    `json:"columns"`
	Rows         int    `json:"rows"`
}

func (s *Server) fetchData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := req.GetString("filename", "")

	var data []byte
	var detectedExt string

	if strings.HasPrefix(rawURL, "data:") {
		data, detectedExt, err = decodeDataURI(rawURL)
	} else {
		data, detectedExt, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL, detectedExt)
	}
	filename = sanitizeFilename(filename)

	if !importer.Supported(filename) {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension: %s (allowed: %s)",
			filepath.Ext(filename), strings.Join(importer.Extensions(), ", "))), nil
	}
	if err := validateMagicBytes(data, strings.ToLower(filepath.Ext(filename))); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	savePath := filepath.Join(downloadDir, filename)
	if res := s.svc.ReadFile(savePath); res.Success {
		return mcp.NewToolResultError(fmt.Sprintf("file already exists: %s", savePath)), nil
	}
	if res := s.svc.WriteFile(savePath, data); !res.Success {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save download: %s", res.Error)), nil
	}

	ds, err := s.svc.ImportFile(ctx, savePath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(fetchResult{
		SavedPath:    savePath,
		DataSourceID: ds.ID,
		Columns:      len(ds.Columns),
		Rows:         len(ds.Rows),
	})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxFetchSize {
		return nil, "", fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxFetchSize)
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	return data, mimeToExt[mime], nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}

	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxFetchSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxFetchSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxFetchSize)
	}

	ct := resp.Header.Get("Content-Type")
	ext := mimeToExt[strings.TrimSpace(strings.Split(ct, ";")[0])]
	return data, ext, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromURL tries to extract a filename from a URL, falling back to UUID.
func filenameFromURL(rawURL string, fallbackExt string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}

	ext := fallbackExt
	if ext == "" {
		ext = ".csv"
	}
	return uuid.New().String() + ext
}

// sanitizeFilename strips path separators and unsafe characters.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes rejects binary formats whose content does not match
// the extension. Text formats are left to the parser.
func validateMagicBytes(data []byte, ext string) error {
	switch ext {
	case ".xlsx", ".xlsm":
		if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return fmt.Errorf("content does not match extension %s (not a zip container)", ext)
		}
	case ".parquet":
		if !bytes.HasPrefix(data, []byte("PAR1")) {
			return fmt.Errorf("content does not match extension %s (missing PAR1 magic)", ext)
		}
	case ".csv", ".tsv", ".json":
		if detected := http.DetectContentType(data); !strings.HasPrefix(detected, "text/") && !strings.HasPrefix(detected, "application/json") {
			return fmt.Errorf("content does not match extension %s (detected: %s)", ext, detected)
		}
	}
	return nil
}
