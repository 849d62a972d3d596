package strategies

import (
	"fmt"
	"sort"

	"futures-backtest/services/engine"
)

var registry = map[string]func() engine.Signal{
	"rsi_reversal":   func() engine.Signal { return RSIReversal(15, 85) },
	"macd_turn":      MACDTurn,
	"bollinger_fade": BollingerFade,
}

// ByName resolves a registered signal so binaries can accept it as a flag or
// request field.
func ByName(name string) (engine.Signal, error) {
	factory, ok := registry[name]
	if !ok {
		return engine.Signal{}, fmt.Errorf("unknown signal %q (known: %v)", name, Names())
	}
	return factory(), nil
}

// Names lists the registered signal names in stable order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
