// Package tracing records bus transactions as they are issued.
package tracing

import (
	"fmt"
	"os"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/mesibus/bus"
	"github.com/sarchlab/mesibus/hooking"
)

// CSVBackend stores bus transactions into a CSV file.
type CSVBackend struct {
	path string
	file *os.File

	transactions []bus.Transaction
	bufferSize   int
}

// NewCSVBackend creates a new CSVBackend.
func NewCSVBackend(path string) *CSVBackend {
	return &CSVBackend{
		path:       path,
		bufferSize: 1000,
	}
}

// Init creates the tracing CSV file. If the file already exists, it will be
// overwritten.
func (t *CSVBackend) Init() {
	file, err := os.Create(t.path)
	if err != nil {
		panic(err)
	}
	t.file = file

	fmt.Fprintf(file, "ID, Cycle, Core, Op, Address, Cost, Bytes, SnoopResult\n")

	atexit.Register(func() {
		t.Flush()
		err := t.file.Close()
		if err != nil {
			panic(err)
		}
	})
}

// Func records the transaction a bus-transaction hook carries. Hooks fired
// at other positions are ignored.
func (t *CSVBackend) Func(ctx hooking.HookCtx) {
	if ctx.Pos != hooking.HookPosBusTransaction {
		return
	}

	tx, ok := ctx.Item.(bus.Transaction)
	if !ok {
		return
	}

	t.Write(tx)
}

// Write buffers one transaction, flushing when the buffer fills.
func (t *CSVBackend) Write(tx bus.Transaction) {
	t.transactions = append(t.transactions, tx)
	if len(t.transactions) >= t.bufferSize {
		t.Flush()
	}
}

// Flush writes the buffered transactions to the CSV file.
func (t *CSVBackend) Flush() {
	for _, tx := range t.transactions {
		fmt.Fprintf(t.file, "%s, %d, %d, %s, 0x%08x, %d, %d, %s\n",
			xid.New().String(),
			tx.Cycle,
			tx.CoreID,
			tx.Op,
			tx.Address,
			tx.Cost,
			tx.Bytes,
			tx.Result,
		)
	}

	t.transactions = nil
}
