// Package hooking lets instrumentation observe the engine without the
// engine knowing about it. Hooks fire at a fixed set of positions: when a
// transaction is placed on the bus, when a core consumes an access, and
// when the simulation ends.
package hooking

// HookPos identifies the position in the engine a hook fires at.
type HookPos string

const (
	// HookPosBusTransaction fires when a transaction is placed on the bus.
	// The hook item is a bus.Transaction.
	HookPosBusTransaction HookPos = "BusTransaction"

	// HookPosAccessCompleted fires when a core consumes a trace access,
	// hit or miss. The hook item is a simulation.AccessRecord.
	HookPosAccessCompleted HookPos = "AccessCompleted"

	// HookPosSimulationEnd fires once after the last core drains its
	// trace. The hook item is the final cycle count.
	HookPosSimulationEnd HookPos = "SimulationEnd"
)

// HookCtx is handed to every hook invocation.
type HookCtx struct {
	Domain Hookable
	Pos    HookPos
	Item   any
}

// Hookable defines an object that accepts hooks.
type Hookable interface {
	// AcceptHook registers a hook.
	AcceptHook(hook Hook)
}

// Hook is a short piece of program that can be invoked by a hookable
// object.
type Hook interface {
	// Func determines what to do if the hook is invoked.
	Func(ctx HookCtx)
}

// A HookableBase can be embedded to implement the Hookable interface. Its
// zero value is ready to use.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// InvokeHook fires every registered hook, in registration order, with the
// given position and item on behalf of domain.
func (h *HookableBase) InvokeHook(domain Hookable, pos HookPos, item any) {
	for _, hook := range h.hooks {
		hook.Func(HookCtx{Domain: domain, Pos: pos, Item: item})
	}
}
