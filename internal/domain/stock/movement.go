package stock

import "github.com/shopspring/decimal"

// MovementKind identifies the document flow a line belongs to and governs
// the sign convention applied when the line is expanded into ledger records.
type MovementKind string

const (
	// MovementReceive is a goods receive note line (stock in)
	MovementReceive MovementKind = "RECEIVE"
	// MovementReturn is a goods return note line (stock out, back to supplier)
	MovementReturn MovementKind = "RETURN"
	// MovementTransferOut is the outbound leg of a site transfer
	MovementTransferOut MovementKind = "TRANSFER_OUT"
	// MovementTransferIn is the inbound leg of a site transfer
	MovementTransferIn MovementKind = "TRANSFER_IN"
	// MovementAdjustment is a stock adjustment; the line quantity carries its own sign
	MovementAdjustment MovementKind = "ADJUSTMENT"
)

// String returns the string representation
func (k MovementKind) String() string {
	return string(k)
}

// IsValid returns true if the movement kind is valid
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementReceive, MovementReturn, MovementTransferOut, MovementTransferIn, MovementAdjustment:
		return true
	}
	return false
}

// AllMovementKinds returns all valid movement kinds
func AllMovementKinds() []MovementKind {
	return []MovementKind{
		MovementReceive,
		MovementReturn,
		MovementTransferOut,
		MovementTransferIn,
		MovementAdjustment,
	}
}

// SignedQuantity applies the kind's sign convention to a line quantity.
// Receipts and inbound transfers are positive, returns and outbound transfers
// negative; adjustments keep the line's own sign.
func (k MovementKind) SignedQuantity(lineQty decimal.Decimal) decimal.Decimal {
	switch k {
	case MovementAdjustment:
		return lineQty
	case MovementReceive, MovementTransferIn:
		return lineQty.Abs()
	default:
		return lineQty.Abs().Neg()
	}
}

// AllocatesFromStock returns true if a line of this kind with the given
// quantity consumes existing batches. Inbound movements top up or create a
// batch instead of allocating against existing ones.
func (k MovementKind) AllocatesFromStock(lineQty decimal.Decimal) bool {
	switch k {
	case MovementReturn, MovementTransferOut:
		return true
	case MovementAdjustment:
		return lineQty.IsNegative()
	}
	return false
}

// RegistersSerialBatch returns true if lines of this kind participate in the
// external serial/batch-number registration side channel.
func (k MovementKind) RegistersSerialBatch() bool {
	switch k {
	case MovementReceive, MovementTransferIn:
		return true
	}
	return false
}

// DocPrefix returns the document number prefix for this kind
func (k MovementKind) DocPrefix() string {
	switch k {
	case MovementReceive:
		return "GRN"
	case MovementReturn:
		return "GRT"
	case MovementTransferOut:
		return "TRO"
	case MovementTransferIn:
		return "TRI"
	case MovementAdjustment:
		return "ADJ"
	}
	return "DOC"
}
