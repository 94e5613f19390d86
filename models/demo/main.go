// Package main implements a demo translation model for SignBridge.
// It speaks the model runner protocol: each frame arrives on stdin as
// a 4-byte big-endian length followed by JPEG bytes, and each answer
// is one JSON line with the predictions for that frame.
//
// The demo does not look at the pixels; it cycles through a fixed set
// of glosses so the dashboard can be tried without a trained model.
// Build it in place with:
//
//	go build -o models/demo/demo ./models/demo
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"os"
)

type prediction struct {
	Gloss string  `json:"gloss"`
	Score float64 `json:"score"`
}

type response struct {
	Predictions []prediction `json:"predictions"`
	Error       string       `json:"error,omitempty"`
}

// glosses is the rotation the demo walks through. Each gloss is held
// for holdFrames frames so the smoothing window can settle on it.
var glosses = []string{"hello", "thank_you", "please", "yes", "no"}

const holdFrames = 30

func main() {
	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	enc := json.NewEncoder(out)

	frame := 0
	for {
		if err := discardFrame(in); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			enc.Encode(response{Error: err.Error()})
			out.Flush()
			return
		}

		gloss := glosses[(frame/holdFrames)%len(glosses)]
		enc.Encode(response{Predictions: []prediction{
			{Gloss: gloss, Score: 0.93},
			{Gloss: "idle", Score: 0.04},
		}})
		out.Flush()
		frame++
	}
}

// discardFrame reads one length-prefixed frame without keeping it.
func discardFrame(r *bufio.Reader) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return err
	}
	_, err := io.CopyN(io.Discard, r, int64(length))
	return err
}
