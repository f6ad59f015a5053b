package core

// Renderer paints the visible window onto the physical terminal.
// One frame is BeginFrame, DrawWindow, EndFrame.
type Renderer interface {
	BeginFrame()
	DrawWindow(w *Window)
	EndFrame() error
}
