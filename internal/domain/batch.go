package domain

// BatchImage is one file reference inside a batch.
type BatchImage struct {
	File    string `json:"file"`
	AddedAt int64  `json:"addedAt"`
}

// Batch is a user-named collection of image file references.
type Batch struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Color     string       `json:"color"`
	Images    []BatchImage `json:"images"`
	CreatedAt int64        `json:"createdAt"`
}

// Contains reports whether the batch already references the file.
func (b *Batch) Contains(file string) bool {
	for _, img := range b.Images {
		if img.File == file {
			return true
		}
	}
	return false
}

// Add appends a file reference unless it is already present.
func (b *Batch) Add(file string, addedAt int64) bool {
	if b.Contains(file) {
		return false
	}
	b.Images = append(b.Images, BatchImage{File: file, AddedAt: addedAt})
	return true
}

// Remove drops a file reference; it is a no-op when absent.
func (b *Batch) Remove(file string) bool {
	for i, img := range b.Images {
		if img.File == file {
			b.Images = append(b.Images[:i], b.Images[i+1:]...)
			return true
		}
	}
	return false
}
