package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"

	"ms-attractions/internal/apperr"
	"ms-attractions/internal/models"
)

var ErrInvalidPass = apperr.New(apperr.KindValidation, "invalid_pass", "pass code is invalid or has been tampered with")

// Payload is what a pass code carries.
type Payload struct {
	ReservationID string    `json:"rid"`
	UserID        string    `json:"uid"`
	AttractionID  string    `json:"aid"`
	Date          string    `json:"date"`
	IssuedAt      time.Time `json:"iat"`
}

// Generator seals reservation payloads with AES-GCM and renders them as QR codes.
type Generator struct {
	aead cipher.AEAD
	size int
}

func NewGenerator(secret string) (*Generator, error) {
	if secret == "" {
		return nil, errors.New("pass secret key is required")
	}
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead, size: 256}, nil
}

// Encode returns the URL-safe code for a reservation.
func (g *Generator) Encode(r models.Reservation, issuedAt time.Time) (string, error) {
	data, err := json.Marshal(Payload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		AttractionID:  r.AttractionID,
		Date:          r.Date,
		IssuedAt:      issuedAt.UTC(),
	})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens a code produced by Encode.
func (g *Generator) Decode(code string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil || len(raw) < g.aead.NonceSize() {
		return Payload{}, ErrInvalidPass
	}

	nonce, sealed := raw[:g.aead.NonceSize()], raw[g.aead.NonceSize():]
	data, err := g.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrInvalidPass, err)
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil || p.ReservationID == "" {
		return Payload{}, ErrInvalidPass
	}
	return p, nil
}

// QR renders the reservation's code as a PNG.
func (g *Generator) QR(r models.Reservation, issuedAt time.Time) ([]byte, error) {
	code, err := g.Encode(r, issuedAt)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(code, qrcode.Medium, g.size)
}
