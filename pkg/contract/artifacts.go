package contract

type FileInfo struct {
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	FileSize int64  `json:"file_size,omitempty"`
}

type ListArtifacts struct {
	Path string `query:"path" validate:"relativePathWithoutDotDot"`
}

type ListArtifactsResponse struct {
	Files []FileInfo `json:"files"`
}
