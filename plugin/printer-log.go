package plugin

import (
	"log/slog"
	"strings"
	"sync"

	Mt "github.com/maroda/musicio/types"
)

// LogPrinter stands in for the thermal printer
type LogPrinter struct {
	MU       sync.Mutex
	Receipts []string
}

func NewLogPrinter() *LogPrinter { return &LogPrinter{} }

func (lp *LogPrinter) PrintReceipt(outcome Mt.GameOutcome, score int, receipt string) error {
	lp.MU.Lock()
	lp.Receipts = append(lp.Receipts, receipt)
	lp.MU.Unlock()

	slog.Info("Receipt printed",
		slog.Int("score", score),
		slog.Int("lines", strings.Count(receipt, "\n")))
	return nil
}

// Last is the newest receipt, empty if none was printed
func (lp *LogPrinter) Last() string {
	lp.MU.Lock()
	defer lp.MU.Unlock()
	if len(lp.Receipts) == 0 {
		return ""
	}
	return lp.Receipts[len(lp.Receipts)-1]
}

func (lp *LogPrinter) Count() int {
	lp.MU.Lock()
	defer lp.MU.Unlock()
	return len(lp.Receipts)
}

func (lp *LogPrinter) Type() string { return "log" }
