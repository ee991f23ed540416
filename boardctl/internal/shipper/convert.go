package shipper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/nexusboard/nexusboard/pkg/notifyrpc"
)

// ErrBlankLine is returned by ParseLine for whitespace-only input.
var ErrBlankLine = errors.New("shipper: blank line")

// ParseLine decodes one relay input line of the form
//
//	{"boardId":"b-1","event":"taskMoved","data":{...}}
//
// data is optional and passed through verbatim.
func ParseLine(line []byte) (*notifyrpc.NotifyRequest, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, ErrBlankLine
	}
	if !gjson.ValidBytes(line) {
		return nil, fmt.Errorf("shipper: line is not valid JSON")
	}
	root := gjson.ParseBytes(line)
	if !root.IsObject() {
		return nil, fmt.Errorf("shipper: line must be a JSON object")
	}

	board := root.Get("boardId")
	if board.Type != gjson.String || board.Str == "" {
		return nil, fmt.Errorf("shipper: boardId must be a non-empty string")
	}
	event := root.Get("event")
	if event.Type != gjson.String || event.Str == "" {
		return nil, fmt.Errorf("shipper: event must be a non-empty string")
	}

	req := &notifyrpc.NotifyRequest{BoardID: board.Str, Event: event.Str}
	if data := root.Get("data"); data.Exists() {
		req.Data = json.RawMessage(data.Raw)
	}
	return req, nil
}
