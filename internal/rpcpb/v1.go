package rpcpb

import (
	"github.com/graphprotocol/tap-aggregator/internal/tap"
	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

// ReceiptV1 is the wire form of tap.ReceiptV1: allocation ID (20 raw
// bytes), timestamp_ns and nonce (8 bytes each), and value as a raw
// hi/lo uint64 pair (16 bytes) — 52 bytes total, fixed width.
type ReceiptV1 struct {
	AllocationID tapcrypto.Address
	TimestampNs  uint64
	Nonce        uint64
	ValueHi      uint64
	ValueLo      uint64
}

func receiptV1FromTap(m tap.ReceiptV1) ReceiptV1 {
	return ReceiptV1{
		AllocationID: m.AllocationID,
		TimestampNs:  m.TimestampNs,
		Nonce:        m.Nonce,
		ValueHi:      m.Value.Hi,
		ValueLo:      m.Value.Lo,
	}
}

func (m ReceiptV1) toTap() tap.ReceiptV1 {
	return tap.ReceiptV1{
		AllocationID: m.AllocationID,
		TimestampNs:  m.TimestampNs,
		Nonce:        m.Nonce,
		Value:        tapcrypto.Uint128{Hi: m.ValueHi, Lo: m.ValueLo},
	}
}

func (m ReceiptV1) writeTo(w *writer) {
	w.fixed(m.AllocationID.Bytes())
	w.uint64(m.TimestampNs)
	w.uint64(m.Nonce)
	w.uint64(m.ValueHi)
	w.uint64(m.ValueLo)
}

func readReceiptV1(r *reader) (ReceiptV1, error) {
	var m ReceiptV1
	addr, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.AllocationID = tapcrypto.Address(addr)
	if m.TimestampNs, err = r.uint64(); err != nil {
		return m, err
	}
	if m.Nonce, err = r.uint64(); err != nil {
		return m, err
	}
	if m.ValueHi, err = r.uint64(); err != nil {
		return m, err
	}
	if m.ValueLo, err = r.uint64(); err != nil {
		return m, err
	}
	return m, nil
}

// Signature is the wire form of tap.Signature: R (32 bytes), S (32 bytes),
// V (1 byte) — 65 bytes total.
type Signature struct {
	R tapcrypto.Hash32
	S tapcrypto.Hash32
	V uint8
}

func signatureFromTap(s tap.Signature) Signature {
	return Signature{R: s.R, S: s.S, V: s.V}
}

func (s Signature) toTap() tap.Signature {
	return tap.Signature{R: s.R, S: s.S, V: s.V}
}

func (s Signature) writeTo(w *writer) {
	w.fixed(s.R.Bytes())
	w.fixed(s.S.Bytes())
	w.byte(s.V)
}

func readSignature(r *reader) (Signature, error) {
	var s Signature
	rb, err := r.fixed(32)
	if err != nil {
		return s, err
	}
	copy(s.R[:], rb)
	sb, err := r.fixed(32)
	if err != nil {
		return s, err
	}
	copy(s.S[:], sb)
	v, err := r.byte()
	if err != nil {
		return s, err
	}
	s.V = v
	return s, nil
}

// SignedReceiptV1 is the wire form of tap.SignedReceiptV1.
type SignedReceiptV1 struct {
	Message   ReceiptV1
	Signature Signature
}

// SignedReceiptV1FromTap converts a tap.SignedReceiptV1 to its wire form.
func SignedReceiptV1FromTap(s tap.SignedReceiptV1) SignedReceiptV1 {
	return SignedReceiptV1{Message: receiptV1FromTap(s.Message), Signature: signatureFromTap(s.Signature)}
}

// ToTap converts back to the domain type.
func (s SignedReceiptV1) ToTap() tap.SignedReceiptV1 {
	return tap.SignedReceiptV1{Message: s.Message.toTap(), Signature: s.Signature.toTap()}
}

func (s SignedReceiptV1) writeTo(w *writer) {
	s.Message.writeTo(w)
	s.Signature.writeTo(w)
}

func readSignedReceiptV1(r *reader) (SignedReceiptV1, error) {
	var s SignedReceiptV1
	msg, err := readReceiptV1(r)
	if err != nil {
		return s, err
	}
	sig, err := readSignature(r)
	if err != nil {
		return s, err
	}
	return SignedReceiptV1{Message: msg, Signature: sig}, nil
}

// RavV1 is the wire form of tap.RavV1: allocation ID (20 bytes),
// timestamp_ns (8 bytes), value_aggregate as a hi/lo uint64 pair (16
// bytes) — 44 bytes total.
type RavV1 struct {
	AllocationID tapcrypto.Address
	TimestampNs  uint64
	ValueAggHi   uint64
	ValueAggLo   uint64
}

func ravV1FromTap(m tap.RavV1) RavV1 {
	return RavV1{
		AllocationID: m.AllocationID,
		TimestampNs:  m.TimestampNs,
		ValueAggHi:   m.ValueAggregate.Hi,
		ValueAggLo:   m.ValueAggregate.Lo,
	}
}

func (m RavV1) toTap() tap.RavV1 {
	return tap.RavV1{
		AllocationID:   m.AllocationID,
		TimestampNs:    m.TimestampNs,
		ValueAggregate: tapcrypto.Uint128{Hi: m.ValueAggHi, Lo: m.ValueAggLo},
	}
}

func (m RavV1) writeTo(w *writer) {
	w.fixed(m.AllocationID.Bytes())
	w.uint64(m.TimestampNs)
	w.uint64(m.ValueAggHi)
	w.uint64(m.ValueAggLo)
}

func readRavV1(r *reader) (RavV1, error) {
	var m RavV1
	addr, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.AllocationID = tapcrypto.Address(addr)
	if m.TimestampNs, err = r.uint64(); err != nil {
		return m, err
	}
	if m.ValueAggHi, err = r.uint64(); err != nil {
		return m, err
	}
	if m.ValueAggLo, err = r.uint64(); err != nil {
		return m, err
	}
	return m, nil
}

// SignedRavV1 is the wire form of tap.SignedRavV1.
type SignedRavV1 struct {
	Message   RavV1
	Signature Signature
}

// SignedRavV1FromTap converts a tap.SignedRavV1 to its wire form.
func SignedRavV1FromTap(s tap.SignedRavV1) SignedRavV1 {
	return SignedRavV1{Message: ravV1FromTap(s.Message), Signature: signatureFromTap(s.Signature)}
}

// ToTap converts back to the domain type.
func (s SignedRavV1) ToTap() tap.SignedRavV1 {
	return tap.SignedRavV1{Message: s.Message.toTap(), Signature: s.Signature.toTap()}
}

func (s SignedRavV1) writeTo(w *writer) {
	s.Message.writeTo(w)
	s.Signature.writeTo(w)
}

func readSignedRavV1(r *reader) (SignedRavV1, error) {
	var s SignedRavV1
	msg, err := readRavV1(r)
	if err != nil {
		return s, err
	}
	sig, err := readSignature(r)
	if err != nil {
		return s, err
	}
	return SignedRavV1{Message: msg, Signature: sig}, nil
}

// AggregateReceiptsV1Request is the gRPC request message for the V1
// AggregateReceipts RPC.
type AggregateReceiptsV1Request struct {
	APIVersion  string
	Receipts    []SignedReceiptV1
	PreviousRav *SignedRavV1
}

func (m *AggregateReceiptsV1Request) Marshal() ([]byte, error) {
	var w writer
	w.bytesField([]byte(m.APIVersion))
	w.uint32(uint32(len(m.Receipts)))
	for _, r := range m.Receipts {
		r.writeTo(&w)
	}
	if m.PreviousRav != nil {
		w.byte(1)
		m.PreviousRav.writeTo(&w)
	} else {
		w.byte(0)
	}
	return w.bytes(), nil
}

func (m *AggregateReceiptsV1Request) Unmarshal(data []byte) error {
	r := newReader(data)
	av, err := r.bytesField()
	if err != nil {
		return err
	}
	m.APIVersion = string(av)
	n, err := r.uint32()
	if err != nil {
		return err
	}
	m.Receipts = make([]SignedReceiptV1, n)
	for i := range m.Receipts {
		m.Receipts[i], err = readSignedReceiptV1(r)
		if err != nil {
			return err
		}
	}
	present, err := r.byte()
	if err != nil {
		return err
	}
	if present == 1 {
		rav, err := readSignedRavV1(r)
		if err != nil {
			return err
		}
		m.PreviousRav = &rav
	}
	return nil
}

// AggregateReceiptsV1Response is the gRPC response message for the V1
// AggregateReceipts RPC.
type AggregateReceiptsV1Response struct {
	Rav      SignedRavV1
	Warnings []string
}

func (m *AggregateReceiptsV1Response) Marshal() ([]byte, error) {
	var w writer
	m.Rav.writeTo(&w)
	w.uint32(uint32(len(m.Warnings)))
	for _, s := range m.Warnings {
		w.bytesField([]byte(s))
	}
	return w.bytes(), nil
}

func (m *AggregateReceiptsV1Response) Unmarshal(data []byte) error {
	r := newReader(data)
	rav, err := readSignedRavV1(r)
	if err != nil {
		return err
	}
	m.Rav = rav
	n, err := r.uint32()
	if err != nil {
		return err
	}
	m.Warnings = make([]string, n)
	for i := range m.Warnings {
		s, err := r.bytesField()
		if err != nil {
			return err
		}
		m.Warnings[i] = string(s)
	}
	return nil
}
