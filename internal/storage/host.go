package storage

// ReadResult is the outcome of ReadFile. Failures are reported in Error,
// never as a Go error.
type ReadResult struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteResult is the outcome of WriteFile.
type WriteResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ReadFile reads path as text.
func ReadFile(p Provider, path string) ReadResult {
	data, err := p.Read(path)
	if err != nil {
		return ReadResult{Error: err.Error()}
	}
	return ReadResult{Success: true, Content: string(data)}
}

// WriteFile writes content to path.
func WriteFile(p Provider, path string, content []byte) WriteResult {
	if err := p.Write(path, content); err != nil {
		return WriteResult{Error: err.Error()}
	}
	return WriteResult{Success: true, Path: path}
}
