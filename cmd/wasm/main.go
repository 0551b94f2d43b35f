//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/models"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/export"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/loader"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/profile"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/report"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm/rhythm"
)

// Error codes returned to JavaScript
const (
	ErrorNone = iota
	ErrorInvalidArgs
	ErrorInvalidSystem
	ErrorEncoding
	ErrorExport
)

// analyze parses a document and runs the rhythm engine over it.
func analyze(args []js.Value) (*models.Analysis, js.Value) {
	if len(args) < 1 {
		return nil, makeErrorResponse(ErrorInvalidArgs, "Expected at least 1 argument: document[, format]")
	}
	if args[0].Type() != js.TypeString {
		return nil, makeErrorResponse(ErrorInvalidArgs, "document must be a string")
	}

	format := loader.FormatJSON
	if len(args) > 1 && args[1].Type() == js.TypeString {
		switch args[1].String() {
		case "json":
		case "yaml", "yml":
			format = loader.FormatYAML
		default:
			return nil, makeErrorResponse(ErrorInvalidArgs, fmt.Sprintf("Unsupported format: %q", args[1].String()))
		}
	}

	sys, err := loader.Parse([]byte(args[0].String()), format)
	if err != nil {
		return nil, makeErrorResponse(ErrorInvalidSystem, err.Error())
	}

	opts := profile.Default().Options()
	opts.Logger = logger.New(logger.Config{Level: logger.WARN, Prefix: sys.Name})
	rhythm.NewSystemRhythm(sys, opts).Process()

	return report.FromSystem(sys, "", "browser"), js.Undefined()
}

// Analyzes a system document and returns the analysis as JSON.
// Returns: {error: number, data: string}
func analyzeSystem(this js.Value, args []js.Value) interface{} {
	a, errResp := analyze(args)
	if a == nil {
		return errResp
	}

	data, err := json.Marshal(a)
	if err != nil {
		return makeErrorResponse(ErrorEncoding, fmt.Sprintf("Failed to encode analysis: %v", err))
	}

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", string(data))
	return result
}

// Analyzes a system document and renders it as a Standard MIDI File.
// Returns: {error: number, data: Uint8Array | string}
func renderMIDI(this js.Value, args []js.Value) interface{} {
	a, errResp := analyze(args)
	if a == nil {
		return errResp
	}

	var buf bytes.Buffer
	if err := export.WriteMIDI(&buf, a, export.DefaultMIDIOptions()); err != nil {
		return makeErrorResponse(ErrorExport, fmt.Sprintf("Failed to render MIDI: %v", err))
	}

	bytesJS := js.Global().Get("Uint8Array").New(buf.Len())
	js.CopyBytesToJS(bytesJS, buf.Bytes())

	result := js.Global().Get("Object").New()
	result.Set("error", ErrorNone)
	result.Set("data", bytesJS)
	return result
}

func makeErrorResponse(errorCode int, message string) js.Value {
	result := js.Global().Get("Object").New()
	result.Set("error", errorCode)
	result.Set("data", message)
	return result
}

func main() {
	console := js.Global().Get("console")
	if !console.IsUndefined() {
		console.Call("log", "🔧 omrhythm WASM module initializing...")
	}

	done := make(chan struct{})

	js.Global().Set("analyzeSystem", js.FuncOf(analyzeSystem))
	js.Global().Set("renderMIDI", js.FuncOf(renderMIDI))

	if !console.IsUndefined() {
		console.Call("log", "📝 analyzeSystem and renderMIDI registered")
	}

	window := js.Global().Get("window")
	if !window.IsUndefined() {
		eventInit := js.Global().Get("Object").New()
		event := js.Global().Get("CustomEvent").New("wasmReady", eventInit)
		window.Call("dispatchEvent", event)
		if !console.IsUndefined() {
			console.Call("log", "✅ wasmReady event dispatched")
		}
	} else if !console.IsUndefined() {
		console.Call("error", "❌ window object is undefined!")
	}

	<-done
}
