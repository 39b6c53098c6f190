package musicio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	Ms "github.com/maroda/musicio/server"
	Mt "github.com/maroda/musicio/types"
)

const (
	screenGutter  = 3 // rows above the first track
	labelWidth    = 28
	RenderRefresh = 100 * time.Millisecond
)

var mixCycle = []Mt.MixMode{Mt.Additive, Mt.Priority, Mt.Layered}

// NextMixMode is the mode after m in the m-key cycle
func NextMixMode(m Mt.MixMode) Mt.MixMode {
	for i, mm := range mixCycle {
		if mm == m {
			return mixCycle[(i+1)%len(mixCycle)]
		}
	}
	return Mt.Additive
}

// AttachScreen adds the terminal to a view, the caller keeps ownership
func (v *View) AttachScreen(s tcell.Screen) {
	defStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	s.SetStyle(defStyle)

	v.MU.Lock()
	v.Screen = s
	v.MU.Unlock()
}

// GetScreenSize provides the terminal size for drawing
func (v *View) GetScreenSize() (int, int) {
	return v.Screen.Size()
}

// DrawText displays the text string at the given (x1, y1) with box size (x2, y2)
func (v *View) DrawText(x1, y1, x2, y2 int, text string) {
	row := y1
	col := x1
	style := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorLightSteelBlue)
	for _, r := range text {
		v.Screen.SetContent(col, row, r, nil, style)
		col++
		if col >= x2 {
			row++
			col = x1
		}
		if row > y2 {
			break
		}
	}
}

// DrawViewBorder displays the outline of the View
func (v *View) DrawViewBorder(width, height int) {
	hvStyle := tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorPink)
	v.Screen.SetContent(0, 0, tcell.RuneULCorner, nil, hvStyle)
	v.Screen.SetContent(width, 0, tcell.RuneURCorner, nil, hvStyle)
	v.Screen.SetContent(0, height, tcell.RuneLLCorner, nil, hvStyle)
	v.Screen.SetContent(width, height, tcell.RuneLRCorner, nil, hvStyle)

	for i := 1; i < width; i++ {
		v.Screen.SetContent(i, 0, tcell.RuneHLine, nil, hvStyle)
		v.Screen.SetContent(i, height, tcell.RuneHLine, nil, hvStyle)
	}
	for i := 1; i < height; i++ {
		v.Screen.SetContent(0, i, tcell.RuneVLine, nil, hvStyle)
		v.Screen.SetContent(width, i, tcell.RuneVLine, nil, hvStyle)
	}
}

// TrackStyle colors a bar by priority, harmony voices are dimmer
func TrackStyle(priority int) tcell.Style {
	switch {
	case priority >= 8:
		return tcell.StyleDefault.Background(tcell.ColorMaroon)
	case priority >= Ms.DefaultPriority:
		return tcell.StyleDefault.Background(tcell.ColorDarkOrange)
	case priority >= Ms.HarmonyPriority:
		return tcell.StyleDefault.Background(tcell.ColorAquaMarine)
	default:
		return tcell.StyleDefault.Background(tcell.ColorDodgerBlue)
	}
}

// BarWidth scales an amplitude to the room left of the labels
func BarWidth(amplitude float64, room int) int {
	if room <= 0 || !(amplitude > 0) {
		return 0
	}
	if amplitude > 1 {
		amplitude = 1
	}
	w := int(amplitude*float64(room) + 0.5)
	if w < 1 {
		w = 1
	}
	return w
}

// DrawTracks draws one bar per live track, longest amplitude widest
func (v *View) DrawTracks() {
	width, height := v.GetScreenSize()
	v.DrawViewBorder(width-1, height-1)

	st := v.Orch.Status()
	game := v.Game.Snapshot()

	v.DrawText(2, 1, width-2, 1, fmt.Sprintf("mode: %s | tempo: %d | volume: %.2f | tracks: %d/%d",
		st.Mode, st.Tempo, st.MasterVolume, st.Active, st.Capacity))

	row := screenGutter
	room := width - labelWidth - 4
	for _, t := range st.Tracks {
		if row >= height-2 {
			break
		}
		label := fmt.Sprintf("%-14.14s %7.1fHz", t.Source, t.Frequency)
		v.DrawText(2, row, 2+labelWidth, row, label)
		WriteBar(v.Screen, 2+labelWidth, row, 2+labelWidth+BarWidth(t.Amplitude, room), row+1, TrackStyle(t.Priority))
		row++
	}

	if st.Active == 0 {
		v.DrawText(2, screenGutter, width-2, screenGutter, "silence")
	}

	gameText := "game: idle"
	if game.Active {
		gameText = fmt.Sprintf("game: playing (%s)", game.Source)
	} else if game.Played > 0 {
		gameText = fmt.Sprintf("game: last score %d", game.Score)
	}
	v.DrawText(2, height-2, width-2, height-2, gameText)
	v.DrawText(1, height-1, width, height+10, "/r/ reset | /m/ mix | /g/ game | /ESC/ to quit")
	v.DrawText(width-10, height-1, width, height+10, "MUSICIO")
}

func (v *View) UpdateScreen() {
	start := time.Now()
	v.Screen.Clear()
	v.DrawTracks()
	v.Screen.Show()
	v.Stats.RecRender(start)
}

// ResizeScreen redraws after terminal changes
func (v *View) ResizeScreen() {
	v.Screen.Sync()
	v.UpdateScreen()
}

// HandleEvent acts on one terminal event and reports whether to quit
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.ResizeScreen()
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return true
		}
		switch ev.Rune() {
		case 'r':
			v.Orch.Reset()
		case 'm':
			v.Orch.SetMixMode(NextMixMode(v.Orch.MixMode()))
		case 'g':
			v.TriggerGameStart("keyboard")
		}
	}
	return false
}

// RunTerminal draws and handles keys until ctx ends or ESC is pressed.
// ESC also calls v.Cancel so the rest of the program winds down.
func (v *View) RunTerminal(ctx context.Context) error {
	if v.Screen == nil {
		return errors.New("no screen attached")
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	events := make(chan tcell.Event, 16)

	wg.Add(2)
	go func() {
		defer wg.Done()
		v.Screen.ChannelEvents(events, ctx.Done())
	}()
	go func() {
		defer wg.Done()
		v.renderLoop(ctx)
	}()

	slog.Info("Starting terminal view")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if v.HandleEvent(ev) {
				slog.Info("Quit from terminal")
				if v.Cancel != nil {
					v.Cancel()
				}
				return nil
			}
		}
	}
}

func (v *View) renderLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in render loop", slog.Any("panic", r))
			slog.Error("Recovered from panic", slog.String("stack", string(debug.Stack())))
		}
	}()

	ticker := time.NewTicker(RenderRefresh)
	defer ticker.Stop()

	v.UpdateScreen()
	for {
		select {
		case <-ticker.C:
			v.UpdateScreen()
		case <-ctx.Done():
			return
		}
	}
}
