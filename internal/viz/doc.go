// Package viz draws soft bodies in the terminal.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: live simulation with particle selection and dragging
//   - [Canvas]: Braille-based pixel canvas
//   - [Projection]: world x/y to canvas dots
//
// # Key Bindings
//
//	Space      - Pause/Resume simulation
//	Tab        - Select next particle (shift+tab: previous)
//	D          - Toggle drag mode on the selected body
//	Arrows     - Move the selected particle while dragging
//	+ / -      - Change the drag step
//	R          - Rebuild the scene
//	T          - Cycle color themes
//	?          - Show help overlay
//	Q          - Quit
package viz
