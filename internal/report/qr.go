package report

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of generated QR codes
const QRSize = 256

// QRPayload is the text encoded in an endoscope's QR code
func QRPayload(id int64, designation, numeroSerie string) string {
	return fmt.Sprintf("ENDOSCOPE_ID:%d|DESIGNATION:%s|SERIE:%s", id, designation, numeroSerie)
}

// QRCode renders the endoscope label as a PNG
func QRCode(id int64, designation, numeroSerie string, size int) ([]byte, error) {
	if size <= 0 {
		size = QRSize
	}
	png, err := qrcode.Encode(QRPayload(id, designation, numeroSerie), qrcode.Low, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
