package editor

import (
	"image"

	"github.com/kiranjd/lumiere-studio/internal/domain"
)

// Session tracks one edit in progress: the current canvas plus an undo
// stack of every prior canvas.
type Session struct {
	canvas image.Image
	undo   []image.Image
}

// NewSession starts an edit session over the given image.
func NewSession(img image.Image) *Session {
	return &Session{canvas: img}
}

// Canvas returns the current working image.
func (s *Session) Canvas() image.Image {
	return s.canvas
}

// UndoDepth reports how many states can be undone.
func (s *Session) UndoDepth() int {
	return len(s.undo)
}

// Crop replaces the canvas with the crop result, pushing the prior canvas
// onto the undo stack.
func (s *Session) Crop(r Rect) error {
	out, err := Crop(s.canvas, r)
	if err != nil {
		return err
	}
	s.push(out)
	return nil
}

// Rotate turns the canvas clockwise by the given quarter-turn angle.
func (s *Session) Rotate(degrees int) error {
	out, err := Rotate(s.canvas, degrees)
	if err != nil {
		return err
	}
	s.push(out)
	return nil
}

// FlipHorizontal mirrors the canvas left-right.
func (s *Session) FlipHorizontal() {
	s.push(FlipHorizontal(s.canvas))
}

// FlipVertical mirrors the canvas top-bottom.
func (s *Session) FlipVertical() {
	s.push(FlipVertical(s.canvas))
}

// Split cuts the canvas into grid cells without mutating the session.
func (s *Session) Split(rows, cols int) ([]*image.RGBA, error) {
	return GridSplit(s.canvas, rows, cols)
}

// Undo restores the previous canvas. It pops exactly one state and reports
// ErrNotFound when the stack is empty.
func (s *Session) Undo() error {
	if len(s.undo) == 0 {
		return domain.ErrNotFound
	}
	s.canvas = s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	return nil
}

func (s *Session) push(next image.Image) {
	s.undo = append(s.undo, s.canvas)
	s.canvas = next
}
