package indicator

import (
	"fmt"
	"strconv"
	"strings"
)

// Price columns read straight from the candles.
const (
	OutClose  = "close"
	OutOpen   = "open"
	OutHigh   = "high"
	OutLow    = "low"
	OutVolume = "volume"
)

// Key identifies one column of a Series.
//
// Keys are comparable, so they index maps directly. String renders the
// familiar header form ("ema(20)", "macd-h(12/26/9)") used in configuration
// files and signal descriptions; ParseKey is its inverse.
type Key struct {
	Output string // "close", "ema", "macd-h", "stoch-k", ...
	Params [3]int
	Source string // source column for ema; "" reads close
}

// Close is the close-price column.
var Close = Key{Output: OutClose}

func priceKey(name string) bool {
	switch name {
	case OutClose, OutOpen, OutHigh, OutLow, OutVolume:
		return true
	}
	return false
}

// IsPrice reports whether k reads a raw candle field.
func (k Key) IsPrice() bool { return priceKey(k.Output) }

func (k Key) String() string {
	p := k.Params
	switch k.Output {
	case OutClose, OutOpen, OutHigh, OutLow, OutVolume:
		return k.Output
	case outEMA:
		if k.Source != "" && k.Source != OutClose {
			return fmt.Sprintf("ema(%d)-%s", p[0], k.Source)
		}
		return fmt.Sprintf("ema(%d)", p[0])
	case outMACD:
		return fmt.Sprintf("macd(%d/%d)", p[0], p[1])
	case outMACDSignal, outMACDHist, outMACDHistMA:
		return fmt.Sprintf("%s(%d/%d/%d)", k.Output, p[0], p[1], p[2])
	default:
		return fmt.Sprintf("%s(%d)", k.Output, p[0])
	}
}

// ParseKey parses a header name into a Key. Omitted secondary parameters
// take their defaults: signal 9 for macd, slow period 3 for stochastic,
// std count 2 for bollinger.
func ParseKey(name string) (Key, error) {
	name = strings.TrimSpace(name)
	if priceKey(name) {
		return Key{Output: name}, nil
	}
	if name == "price" {
		return Close, nil
	}

	open := strings.IndexByte(name, '(')
	end := strings.IndexByte(name, ')')
	if open <= 0 || end < open {
		return Key{}, fmt.Errorf("indicator: malformed column %q", name)
	}
	out := name[:open]
	if _, ok := registry[out]; !ok {
		return Key{}, fmt.Errorf("indicator: unknown column %q", name)
	}

	var params [3]int
	fields := strings.Split(name[open+1:end], "/")
	if len(fields) > len(params) {
		return Key{}, fmt.Errorf("indicator: too many parameters in %q", name)
	}
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Key{}, fmt.Errorf("indicator: bad parameter %q in %q", f, name)
		}
		params[i] = n
	}

	k := Key{Output: out, Params: params}
	rest := name[end+1:]
	switch {
	case out == outEMA && strings.HasPrefix(rest, "-"):
		src, err := ParseKey(rest[1:])
		if err != nil {
			return Key{}, err
		}
		if src != Close {
			k.Source = src.String()
		}
	case rest != "":
		return Key{}, fmt.Errorf("indicator: trailing text in %q", name)
	}
	return withDefaults(k), nil
}

// MustKey is ParseKey for literals; it panics on malformed names.
func MustKey(name string) Key {
	k, err := ParseKey(name)
	if err != nil {
		panic(err)
	}
	return k
}

func withDefaults(k Key) Key {
	switch k.Output {
	case outMACD, outMACDSignal, outMACDHist, outMACDHistMA:
		if k.Params[2] == 0 {
			k.Params[2] = 9
		}
	case outStochK, outStochD, outStochDiff:
		if k.Params[1] == 0 {
			k.Params[1] = 3
		}
	case outBBLower, outBBMiddle, outBBUpper:
		if k.Params[1] == 0 {
			k.Params[1] = 2
		}
	}
	return k
}
