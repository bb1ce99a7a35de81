package model

// DirEntry is the metadata of one entry in a checkout directory listing
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}
