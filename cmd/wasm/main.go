//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"image"
	"image/draw"
	"log/slog"
	"net/http"
	"syscall/js"
	"time"

	"github.com/inkroom/inkroom/internal/engine"
	"github.com/inkroom/inkroom/internal/gesture"
	"github.com/inkroom/inkroom/internal/render"
	"github.com/inkroom/inkroom/internal/shape"
	"github.com/inkroom/inkroom/internal/syncclient"
)

var (
	eng      *engine.Engine
	cancel   context.CancelFunc
	onSignal js.Value
	onPaint  js.Value
	raf      js.Func
	frameBuf *image.RGBA
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Session ---
	api.Set("connect", js.FuncOf(connect))
	api.Set("disconnect", js.FuncOf(disconnect))
	api.Set("onSignal", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) > 0 {
			onSignal = args[0]
		}
		return nil
	}))
	api.Set("onPaint", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) > 0 {
			onPaint = args[0]
		}
		return nil
	}))

	// --- Input (host → engine) ---
	api.Set("pointerDown", js.FuncOf(pointer(func(ev gesture.PointerEvent) engine.Input { return engine.PointerDown(ev) })))
	api.Set("pointerMove", js.FuncOf(pointer(func(ev gesture.PointerEvent) engine.Input { return engine.PointerMove(ev) })))
	api.Set("pointerUp", js.FuncOf(pointer(func(ev gesture.PointerEvent) engine.Input { return engine.PointerUp(ev) })))
	api.Set("wheel", js.FuncOf(wheel))
	api.Set("keyDown", js.FuncOf(key(func(ev gesture.KeyEvent) engine.Input { return engine.KeyDown(ev) })))
	api.Set("keyUp", js.FuncOf(key(func(ev gesture.KeyEvent) engine.Input { return engine.KeyUp(ev) })))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setStyle", js.FuncOf(setStyle))
	api.Set("setText", js.FuncOf(setText))
	api.Set("finishTyping", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		post(engine.FinishTyping{})
		return nil
	}))
	api.Set("resetView", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		post(engine.ResetView{})
		return nil
	}))
	api.Set("resize", js.FuncOf(resize))

	raf = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if eng != nil {
			eng.Frame()
		}
		return nil
	})

	js.Global().Set("inkroomEngine", api)
	js.Global().Set("inkroomWasmReady", js.ValueOf(true))

	select {}
}

func post(in engine.Input) {
	if eng == nil {
		return
	}
	eng.TryPost(in)
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

// connect(serverURL, roomId, userId, userName, token, width, height)
func connect(this js.Value, args []js.Value) interface{} {
	if len(args) < 7 {
		return errorResult("connect needs serverURL, roomId, userId, userName, token, width, height")
	}
	if eng != nil {
		return errorResult("already connected")
	}
	cfg := syncclient.Config{
		ServerURL: args[0].String(),
		RoomID:    args[1].String(),
		UserID:    args[2].String(),
		UserName:  args[3].String(),
		Token:     args[4].String(),
	}
	width, height := args[5].Int(), args[6].Int()

	fonts, err := render.LoadFonts()
	if err != nil {
		slog.Warn("load fonts", "error", err)
	}
	var ropts []render.Option
	if fonts != nil {
		ropts = append(ropts, render.WithFonts(fonts))
	}
	renderer := render.New(width, height, ropts...)

	sc := syncclient.New(cfg, syncclient.WithCursorColor(render.PeerColor))
	eng = engine.New(renderer, sc,
		engine.WithSignals(emitSignal),
		engine.WithPaint(paint),
		engine.WithFrameRequester(func() { js.Global().Call("requestAnimationFrame", raf) }),
	)

	var ctx context.Context
	ctx, cancel = context.WithCancel(context.Background())
	go func() {
		go eng.Run(ctx)

		fetchCtx, fetchCancel := context.WithTimeout(ctx, 15*time.Second)
		shapes, skipped, err := syncclient.FetchSnapshot(fetchCtx, http.DefaultClient, cfg.ServerURL, cfg.RoomID, cfg.Token)
		fetchCancel()
		if err != nil {
			slog.Error("fetch snapshot", "room", cfg.RoomID, "error", err)
		} else {
			if skipped > 0 {
				slog.Warn("snapshot shapes skipped", "count", skipped)
			}
			eng.Post(ctx, engine.Load{Shapes: shapes})
		}

		if err := sc.Connect(ctx); err != nil {
			slog.Error("connect room", "room", cfg.RoomID, "error", err)
			emitSignal(engine.ConnectionLost{Err: err})
			return
		}
		<-ctx.Done()
		sc.Close()
		if fonts != nil {
			fonts.Close()
		}
	}()

	return js.ValueOf(map[string]interface{}{"ok": true})
}

func disconnect(this js.Value, args []js.Value) interface{} {
	if cancel != nil {
		cancel()
		cancel = nil
	}
	eng = nil
	return nil
}

// pointer(x, y, button, touches)
func pointer(wrap func(gesture.PointerEvent) engine.Input) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return nil
		}
		ev := gesture.PointerEvent{X: args[0].Float(), Y: args[1].Float()}
		if len(args) > 2 {
			ev.Button = gesture.Button(args[2].Int())
		}
		if len(args) > 3 {
			ev.Touches = args[3].Int()
		}
		post(wrap(ev))
		return nil
	}
}

func wheel(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	post(engine.Wheel{X: args[0].Float(), Y: args[1].Float(), DeltaY: args[2].Float()})
	return nil
}

// key(key, ctrlOrMeta)
func key(wrap func(gesture.KeyEvent) engine.Input) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return nil
		}
		ev := gesture.KeyEvent{Key: args[0].String()}
		if len(args) > 1 {
			ev.Ctrl = args[1].Truthy()
		}
		post(wrap(ev))
		return nil
	}
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	post(engine.SetTool{Tool: gesture.Tool(args[0].String())})
	return nil
}

func setStyle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	var st shape.Style
	if err := json.Unmarshal([]byte(args[0].String()), &st); err != nil {
		return errorResult("invalid style: " + err.Error())
	}
	post(engine.SetStyle{Style: &st})
	return nil
}

func setText(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	post(engine.SetText{ShapeID: args[0].String(), Text: args[1].String()})
	return nil
}

func resize(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	post(engine.Resize{Width: args[0].Int(), Height: args[1].Int()})
	return nil
}

// paint copies the frame into a Uint8ClampedArray for putImageData.
func paint(img image.Image) {
	if onPaint.IsUndefined() || onPaint.IsNull() {
		return
	}
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		if frameBuf == nil || frameBuf.Bounds() != b {
			frameBuf = image.NewRGBA(b)
		}
		draw.Draw(frameBuf, b, img, b.Min, draw.Src)
		rgba = frameBuf
	}
	arr := js.Global().Get("Uint8ClampedArray").New(len(rgba.Pix))
	js.CopyBytesToJS(arr, rgba.Pix)
	onPaint.Invoke(arr, b.Dx(), b.Dy())
}

func emitSignal(sig engine.Signal) {
	if onSignal.IsUndefined() || onSignal.IsNull() {
		return
	}
	var payload map[string]interface{}
	switch s := sig.(type) {
	case gesture.TextEditStarted:
		payload = map[string]interface{}{"type": "textEditStarted", "shapeId": s.ShapeID, "text": s.Text}
	case gesture.TextChanged:
		payload = map[string]interface{}{"type": "textChanged", "shapeId": s.ShapeID, "text": s.Text}
	case gesture.TextEditFinished:
		payload = map[string]interface{}{"type": "textEditFinished", "shapeId": s.ShapeID}
	case gesture.QuickTipsToggled:
		payload = map[string]interface{}{"type": "quickTipsToggled", "visible": s.Visible}
	case gesture.ColorPicked:
		payload = map[string]interface{}{"type": "colorPicked", "color": s.Color}
	case gesture.ViewportChanged:
		payload = map[string]interface{}{
			"type":    "viewportChanged",
			"scale":   s.State.Scale,
			"offsetX": s.State.OffsetX,
			"offsetY": s.State.OffsetY,
		}
	case gesture.PanningChanged:
		payload = map[string]interface{}{"type": "panningChanged", "panning": s.Panning}
	case engine.PresenceChanged:
		ids := make([]interface{}, len(s.Participants))
		for i, id := range s.Participants {
			ids[i] = id
		}
		payload = map[string]interface{}{"type": "presenceChanged", "count": len(ids), "participants": ids}
	case engine.ConnectionLost:
		msg := ""
		if s.Err != nil {
			msg = s.Err.Error()
		}
		payload = map[string]interface{}{"type": "connectionLost", "error": msg}
	default:
		return
	}
	onSignal.Invoke(js.ValueOf(payload))
}
