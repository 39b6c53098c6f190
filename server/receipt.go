package musicio

import (
	"fmt"
	"strings"

	Mt "github.com/maroda/musicio/types"
)

const (
	receiptTitle = "MUSICIO"
	receiptWidth = 24 // characters across a thermal roll
)

var receiptPoems = map[Mt.GameOutcome]string{
	Mt.Win: "You came close enough\n" +
		"for the room to sing back,\n" +
		"keep the tune with you.",
	Mt.Lose: "Every step you took\n" +
		"left a note in the air,\n" +
		"come back and finish it.",
}

// ReceiptLine draws the score as one mark per point, capped at receiptWidth
func ReceiptLine(score int) string {
	if score <= 0 {
		return strings.Repeat("-", receiptWidth)
	}
	n := min(score, receiptWidth)
	return strings.Repeat("*", n) + strings.Repeat("-", receiptWidth-n)
}

// BuildReceipt is the thank-you note handed out after a game
func BuildReceipt(outcome Mt.GameOutcome, score int) string {
	var b strings.Builder
	b.WriteString("\n" + receiptTitle + "\n\n")
	b.WriteString("Thanks for playing\nwith us\n\n")
	fmt.Fprintf(&b, "Score: %d\n", score)
	b.WriteString(ReceiptLine(score) + "\n")
	b.WriteString(receiptPoems[outcome] + "\n\n")
	b.WriteString("Sincerely,\n" + receiptTitle + "\n")
	return b.String()
}
