package inventory

// Direction is the sign of a ledger posting
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// IsValid returns true if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionIn || d == DirectionOut
}

// OperationType classifies a stock movement. Each operation type has a fixed
// direction.
type OperationType string

const (
	OperationPurchaseInbound  OperationType = "PURCHASE_INBOUND"
	OperationReturnInbound    OperationType = "RETURN_INBOUND"
	OperationTransferInbound  OperationType = "TRANSFER_INBOUND"
	OperationManualInbound    OperationType = "MANUAL_INBOUND"
	OperationManualOutbound   OperationType = "MANUAL_OUTBOUND"
	OperationOrderOutbound    OperationType = "ORDER_OUTBOUND"
	OperationReturnOutbound   OperationType = "RETURN_OUTBOUND"
	OperationTransferOutbound OperationType = "TRANSFER_OUTBOUND"
)

// String returns the string representation of OperationType
func (o OperationType) String() string {
	return string(o)
}

// IsValid returns true if the operation type is valid
func (o OperationType) IsValid() bool {
	return o.Direction() != ""
}

// Direction returns the direction implied by the operation type, or an empty
// direction for unknown operations.
func (o OperationType) Direction() Direction {
	switch o {
	case OperationPurchaseInbound,
		OperationReturnInbound,
		OperationTransferInbound,
		OperationManualInbound:
		return DirectionIn
	case OperationManualOutbound,
		OperationOrderOutbound,
		OperationReturnOutbound,
		OperationTransferOutbound:
		return DirectionOut
	}
	return ""
}

// SourceType identifies the kind of business record that caused a posting
type SourceType string

const (
	SourcePurchase   SourceType = "PURCHASE"
	SourceOrder      SourceType = "ORDER"
	SourceTransfer   SourceType = "TRANSFER"
	SourceAdjustment SourceType = "ADJUSTMENT"
)

// IsValid returns true if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourcePurchase, SourceOrder, SourceTransfer, SourceAdjustment:
		return true
	}
	return false
}
