// Package action defines the tagged-union payload and result types for
// wallet actions, and their content-addressed digests.
//
// Every action payload carries an explicit type tag and a fixed schema per
// type. Payloads are serialized to JSON for storage and to canonical JSON
// for digest computation; the digest is what the engine compares to detect
// idempotency-key reuse with a different payload.
package action

import (
	"encoding/json"
	"fmt"

	"github.com/primsh/walletd/internal/money"
)

// Type identifies the kind of outbound action.
type Type string

const (
	// TypeSend is a token transfer to a counterparty address.
	TypeSend Type = "send"

	// TypeSwap is an asset swap within the wallet. Swaps have no
	// counterparty, so allow-list checks do not apply to them.
	TypeSwap Type = "swap"
)

// Valid reports whether t names a known action type.
func (t Type) Valid() bool {
	return t == TypeSend || t == TypeSwap
}

// Payload is the interface satisfied by all action payload variants.
//
// Implementations are value types with a fixed schema; the engine never
// inspects free-form maps.
type Payload interface {
	// ActionType returns the type tag.
	ActionType() Type

	// Spend returns the amount counted against spending-policy caps.
	Spend() money.Amount

	// Counterparty returns the destination address the allow-list is
	// checked against, or "" when the action has no counterparty.
	Counterparty() string

	// Asset returns the asset symbol whose balance must cover Spend.
	Asset() string

	// Validate checks the payload's fields.
	Validate() error

	// fields returns the canonical key/value representation used for
	// both storage JSON and digest computation.
	fields() map[string]any
}

// Send is a token transfer payload.
type Send struct {
	To          string
	AssetSymbol string
	Amount      money.Amount
}

func (p Send) ActionType() Type     { return TypeSend }
func (p Send) Spend() money.Amount  { return p.Amount }
func (p Send) Counterparty() string { return p.To }
func (p Send) Asset() string        { return p.AssetSymbol }

// Validate checks the transfer fields.
func (p Send) Validate() error {
	if p.To == "" {
		return fmt.Errorf("send: missing destination address")
	}
	if p.AssetSymbol == "" {
		return fmt.Errorf("send: missing asset")
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("send: amount must be positive, got %s", p.Amount)
	}
	return nil
}

func (p Send) fields() map[string]any {
	return map[string]any{
		"type":   string(TypeSend),
		"to":     p.To,
		"asset":  p.AssetSymbol,
		"amount": p.Amount.String(),
	}
}

// Swap is an asset swap payload.
type Swap struct {
	SellAsset  string
	BuyAsset   string
	Amount     money.Amount // amount of SellAsset to sell
	MinReceive money.Amount // minimum acceptable amount of BuyAsset
}

func (p Swap) ActionType() Type     { return TypeSwap }
func (p Swap) Spend() money.Amount  { return p.Amount }
func (p Swap) Counterparty() string { return "" }
func (p Swap) Asset() string        { return p.SellAsset }

// Validate checks the swap fields.
func (p Swap) Validate() error {
	if p.SellAsset == "" || p.BuyAsset == "" {
		return fmt.Errorf("swap: missing asset pair")
	}
	if p.SellAsset == p.BuyAsset {
		return fmt.Errorf("swap: sell and buy asset are both %q", p.SellAsset)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("swap: amount must be positive, got %s", p.Amount)
	}
	if p.MinReceive.IsNegative() {
		return fmt.Errorf("swap: min_receive must not be negative, got %s", p.MinReceive)
	}
	return nil
}

func (p Swap) fields() map[string]any {
	return map[string]any{
		"type":        string(TypeSwap),
		"sell_asset":  p.SellAsset,
		"buy_asset":   p.BuyAsset,
		"amount":      p.Amount.String(),
		"min_receive": p.MinReceive.String(),
	}
}

// MarshalPayload serializes a payload to its storage JSON (the tagged
// envelope). The output is standard JSON, not the canonical form used for
// digests; use Digest for identity comparison.
func MarshalPayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p.fields())
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", p.ActionType(), err)
	}
	return data, nil
}

// UnmarshalPayload deserializes a tagged payload envelope.
func UnmarshalPayload(data []byte) (Payload, error) {
	var tag struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	switch tag.Type {
	case TypeSend:
		var raw struct {
			To     string `json:"to"`
			Asset  string `json:"asset"`
			Amount string `json:"amount"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal send payload: %w", err)
		}
		amount, err := money.Parse(raw.Amount)
		if err != nil {
			return nil, fmt.Errorf("unmarshal send payload: %w", err)
		}
		return Send{To: raw.To, AssetSymbol: raw.Asset, Amount: amount}, nil

	case TypeSwap:
		var raw struct {
			SellAsset  string `json:"sell_asset"`
			BuyAsset   string `json:"buy_asset"`
			Amount     string `json:"amount"`
			MinReceive string `json:"min_receive"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal swap payload: %w", err)
		}
		amount, err := money.Parse(raw.Amount)
		if err != nil {
			return nil, fmt.Errorf("unmarshal swap payload: %w", err)
		}
		minReceive, err := money.Parse(raw.MinReceive)
		if err != nil {
			return nil, fmt.Errorf("unmarshal swap payload: %w", err)
		}
		return Swap{SellAsset: raw.SellAsset, BuyAsset: raw.BuyAsset, Amount: amount, MinReceive: minReceive}, nil

	default:
		return nil, fmt.Errorf("unmarshal payload: unknown action type %q", tag.Type)
	}
}
