package domain

// MaxSelection caps reference and comparison selections.
const MaxSelection = 4

// Selection is an ordered, unique set of file paths with a fixed capacity.
// It backs both the generation reference set and the comparison set.
type Selection struct {
	files []string
}

// NewSelection builds a selection from existing files, dropping duplicates
// and anything beyond the capacity.
func NewSelection(files ...string) *Selection {
	s := &Selection{}
	for _, f := range files {
		s.Add(f)
	}
	return s
}

// Files returns the selected paths in insertion order.
func (s *Selection) Files() []string {
	out := make([]string, len(s.files))
	copy(out, s.files)
	return out
}

// Len returns the number of selected files.
func (s *Selection) Len() int {
	return len(s.files)
}

// Contains reports whether the file is selected.
func (s *Selection) Contains(file string) bool {
	for _, f := range s.files {
		if f == file {
			return true
		}
	}
	return false
}

// Add selects a file. Duplicates and additions past capacity are no-ops.
func (s *Selection) Add(file string) bool {
	if file == "" || s.Contains(file) || len(s.files) >= MaxSelection {
		return false
	}
	s.files = append(s.files, file)
	return true
}

// Remove deselects a file.
func (s *Selection) Remove(file string) bool {
	for i, f := range s.files {
		if f == file {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle removes a selected file or adds an unselected one, subject to the
// capacity limit.
func (s *Selection) Toggle(file string) bool {
	if s.Contains(file) {
		return s.Remove(file)
	}
	return s.Add(file)
}

// ValidateRefs checks that a reference list fits the selection constraints
// without building a Selection.
func ValidateRefs(refs []string) error {
	if len(refs) > MaxSelection {
		return ErrInvalidRequest
	}
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref == "" {
			return ErrInvalidRequest
		}
		if _, ok := seen[ref]; ok {
			return ErrInvalidRequest
		}
		seen[ref] = struct{}{}
	}
	return nil
}
