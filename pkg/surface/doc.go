// Package surface provides drawing surfaces the particle simulator can paint
// into.
//
// Every surface exposes the same canvas-2D subset (clearRect, beginPath, arc,
// fillStyle, fill):
//   - CanvasSurface: software canvas backed by gogpu/gg, used headless
//   - EbitenSurface: off-screen ebiten image, used by the desktop viewer
//   - TerminalSurface: cell raster on a tcell screen
//   - Recorder: records calls for tests and dry runs
//
// Surfaces are owned by a single frame loop and are not safe for concurrent use.
package surface
