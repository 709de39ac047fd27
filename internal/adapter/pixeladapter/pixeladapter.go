// Package pixeladapter is the real PresentationAdapter: a faiface/pixel
// window showing the rotated 256x224 arcade frame, scaled up, with an
// optional debug panel showing CPU register and disassembly state.
package pixeladapter

import (
	"fmt"
	"image"
	"image/color"

	"github.com/faiface/pixel"
	"github.com/faiface/pixel/pixelgl"
	"github.com/faiface/pixel/text"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"

	"github.com/n-ulricksen/go8080-invaders/internal/adapter"
	"github.com/n-ulricksen/go8080-invaders/internal/machine"
)

const (
	gameW float64 = machine.FrameWidth
	gameH float64 = machine.FrameHeight
	scale float64 = 3

	debugResW float64 = 360
)

// Adapter owns the window and the RGBA staging image the Shell renders
// into via Present.
type Adapter struct {
	gameRgba *image.RGBA
	window   *pixelgl.Window
	matrix   pixel.Matrix

	isDebug       bool
	debugAtlas    *text.Atlas
	debugRegText  *text.Text
	debugInstText *text.Text
}

// Config controls window construction. Scale and Debug come from the CLI.
type Config struct {
	Scale float64
	Debug bool
}

// New opens the game window. It must be called from the main goroutine, per
// pixelgl's requirement; cmd/invaders runs it inside pixelgl.Run.
func New(cfg Config) (*Adapter, error) {
	if cfg.Scale <= 0 {
		cfg.Scale = scale
	}

	rect := image.Rect(0, 0, int(gameW), int(gameH))
	gameRgba := image.NewRGBA(rect)

	screenW := gameW * cfg.Scale
	if cfg.Debug {
		screenW += debugResW
	}

	winCfg := pixelgl.WindowConfig{
		Title:  "Space Invaders",
		Bounds: pixel.R(0, 0, screenW, gameH*cfg.Scale),
		VSync:  true,
	}
	window, err := pixelgl.NewWindow(winCfg)
	if err != nil {
		return nil, errors.Wrap(err, "pixeladapter: create window")
	}

	pic := pixel.PictureDataFromImage(gameRgba)
	m := pixel.IM.Moved(pic.Bounds().Center().Scaled(cfg.Scale))
	m = m.Scaled(pic.Bounds().Center().Scaled(cfg.Scale), cfg.Scale)

	a := &Adapter{
		gameRgba: gameRgba,
		window:   window,
		matrix:   m,
		isDebug:  cfg.Debug,
	}

	if cfg.Debug {
		a.debugAtlas = text.NewAtlas(basicfont.Face7x13, text.ASCII)
		a.debugRegText = text.New(pixel.V(gameW*cfg.Scale+8, gameH*cfg.Scale-40), a.debugAtlas)
		a.debugInstText = text.New(pixel.V(gameW*cfg.Scale+8, gameH*cfg.Scale-180), a.debugAtlas)
	}

	return a, nil
}

// Present copies the framebuffer into the staging image and draws it.
func (a *Adapter) Present(framebuffer []uint32, width, height int) error {
	if width != int(gameW) || height != int(gameH) {
		return fmt.Errorf("pixeladapter: unexpected frame size %dx%d", width, height)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := framebuffer[y*width+x]
			c := color.RGBA{
				R: byte(px >> 16),
				G: byte(px >> 8),
				B: byte(px),
				A: 0xFF,
			}
			// image.RGBA and the Shell's framebuffer both have a top-left
			// origin, so rows copy across unchanged.
			a.gameRgba.SetRGBA(x, y, c)
		}
	}

	a.window.Clear(colornames.Black)
	sprite := pixel.NewSprite(pixel.PictureDataFromImage(a.gameRgba), pixel.R(0, 0, gameW, gameH))
	sprite.Draw(a.window, a.matrix)

	if a.isDebug {
		a.debugRegText.Draw(a.window, pixel.IM)
		a.debugInstText.Draw(a.window, pixel.IM)
	}

	a.window.Update()
	return nil
}

// WriteDebugRegisters and WriteDebugDisasm feed the two debug text panes;
// no-ops when the adapter wasn't built with Debug set.
func (a *Adapter) WriteDebugRegisters(s string) {
	if a.debugRegText == nil {
		return
	}
	a.debugRegText.Clear()
	fmt.Fprint(a.debugRegText, s)
}

func (a *Adapter) WriteDebugDisasm(s string) {
	if a.debugInstText == nil {
		return
	}
	a.debugInstText.Clear()
	fmt.Fprint(a.debugInstText, s)
}

// keyBindings maps keyboard keys to the Shell's symbolic controls, per
// SPEC_FULL.md §5.3.
var keyBindings = map[pixelgl.Button]machine.Key{
	pixelgl.KeyC:         machine.KeyCoin,
	pixelgl.Key2:         machine.Key2PStart,
	pixelgl.Key1:         machine.Key1PStart,
	pixelgl.KeySpace:     machine.KeyP1Fire,
	pixelgl.KeyLeft:      machine.KeyP1Left,
	pixelgl.KeyRight:     machine.KeyP1Right,
	pixelgl.KeyLeftControl: machine.KeyP2Fire,
	pixelgl.KeyA:         machine.KeyP2Left,
	pixelgl.KeyD:         machine.KeyP2Right,
	pixelgl.KeyT:         machine.KeyTilt,
}

// PollEvent checks window close and every bound key for an edge transition.
// pixelgl's JustPressed/JustReleased already debounce to a single event per
// transition, so this never needs to track prior state itself.
func (a *Adapter) PollEvent() adapter.Event {
	if a.window.Closed() {
		return adapter.Event{Kind: adapter.EventQuit}
	}

	for key, sym := range keyBindings {
		if a.window.JustPressed(key) {
			return adapter.Event{Kind: adapter.EventKeyDown, Key: int(sym)}
		}
		if a.window.JustReleased(key) {
			return adapter.Event{Kind: adapter.EventKeyUp, Key: int(sym)}
		}
	}

	return adapter.Event{Kind: adapter.EventNone}
}
