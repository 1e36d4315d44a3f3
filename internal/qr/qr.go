// Package qr builds the payload displayed to students and renders it as a
// scannable image for the lecturer's screen.
package qr

import (
	"encoding/json"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"classtrack/internal/apperr"
	"classtrack/internal/scan"
	"classtrack/internal/session"
)

// Build returns the payload for the requested code type, embedding the
// session's current token and the server clock.
func Build(sess session.Session, typ scan.Type) (scan.Payload, error) {
	p := scan.Payload{
		SessionID: sess.ID,
		ClassID:   sess.ClassID,
		Type:      typ,
		Timestamp: time.Now().UnixMilli(),
	}
	switch typ {
	case scan.TypeStart:
		p.Token = sess.StartToken
	case scan.TypeEnd:
		if sess.EndToken == nil || *sess.EndToken == "" {
			return scan.Payload{}, apperr.New(apperr.InvalidState, "end token has not been generated")
		}
		p.Token = *sess.EndToken
	default:
		return scan.Payload{}, apperr.New(apperr.Validation, "unknown QR type")
	}
	if p.Token == "" {
		return scan.Payload{}, apperr.New(apperr.InvalidState, "session has no token")
	}
	return p, nil
}

// RenderPNG encodes the payload as a QR PNG of the given pixel size.
func RenderPNG(p scan.Payload, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "encode payload", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.High, size)
	if err != nil {
		return nil, apperr.Wrap(apperr.Infrastructure, "render qr", err)
	}
	return png, nil
}
