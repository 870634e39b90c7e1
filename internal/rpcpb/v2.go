package rpcpb

import (
	"github.com/graphprotocol/tap-aggregator/internal/tap"
	"github.com/graphprotocol/tap-aggregator/internal/tapcrypto"
)

// ReceiptV2 is the wire form of tap.ReceiptV2: collection ID (32 bytes),
// three addresses (20 bytes each), timestamp_ns and nonce (8 bytes each),
// and value as a hi/lo uint64 pair (16 bytes) — 124 bytes total, fixed
// width.
type ReceiptV2 struct {
	CollectionID    tapcrypto.Hash32
	Payer           tapcrypto.Address
	DataService     tapcrypto.Address
	ServiceProvider tapcrypto.Address
	TimestampNs     uint64
	Nonce           uint64
	ValueHi         uint64
	ValueLo         uint64
}

func receiptV2FromTap(m tap.ReceiptV2) ReceiptV2 {
	return ReceiptV2{
		CollectionID:    m.CollectionID,
		Payer:           m.Payer,
		DataService:     m.DataService,
		ServiceProvider: m.ServiceProvider,
		TimestampNs:     m.TimestampNs,
		Nonce:           m.Nonce,
		ValueHi:         m.Value.Hi,
		ValueLo:         m.Value.Lo,
	}
}

func (m ReceiptV2) toTap() tap.ReceiptV2 {
	return tap.ReceiptV2{
		CollectionID:    m.CollectionID,
		Payer:           m.Payer,
		DataService:     m.DataService,
		ServiceProvider: m.ServiceProvider,
		TimestampNs:     m.TimestampNs,
		Nonce:           m.Nonce,
		Value:           tapcrypto.Uint128{Hi: m.ValueHi, Lo: m.ValueLo},
	}
}

func (m ReceiptV2) writeTo(w *writer) {
	w.fixed(m.CollectionID.Bytes())
	w.fixed(m.Payer.Bytes())
	w.fixed(m.DataService.Bytes())
	w.fixed(m.ServiceProvider.Bytes())
	w.uint64(m.TimestampNs)
	w.uint64(m.Nonce)
	w.uint64(m.ValueHi)
	w.uint64(m.ValueLo)
}

func readReceiptV2(r *reader) (ReceiptV2, error) {
	var m ReceiptV2
	cid, err := r.fixed(32)
	if err != nil {
		return m, err
	}
	copy(m.CollectionID[:], cid)
	payer, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.Payer = tapcrypto.Address(payer)
	ds, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.DataService = tapcrypto.Address(ds)
	sp, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.ServiceProvider = tapcrypto.Address(sp)
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

// SignedReceiptV2 is the wire form of tap.SignedReceiptV2.
type SignedReceiptV2 struct {
	Message   ReceiptV2
	Signature Signature
}

// SignedReceiptV2FromTap converts a tap.SignedReceiptV2 to its wire form.
func SignedReceiptV2FromTap(s tap.SignedReceiptV2) SignedReceiptV2 {
	return SignedReceiptV2{Message: receiptV2FromTap(s.Message), Signature: signatureFromTap(s.Signature)}
}

// ToTap converts back to the domain type.
func (s SignedReceiptV2) ToTap() tap.SignedReceiptV2 {
	return tap.SignedReceiptV2{Message: s.Message.toTap(), Signature: s.Signature.toTap()}
}

func (s SignedReceiptV2) writeTo(w *writer) {
	s.Message.writeTo(w)
	s.Signature.writeTo(w)
}

func readSignedReceiptV2(r *reader) (SignedReceiptV2, error) {
	var s SignedReceiptV2
	msg, err := readReceiptV2(r)
	if err != nil {
		return s, err
	}
	sig, err := readSignature(r)
	if err != nil {
		return s, err
	}
	return SignedReceiptV2{Message: msg, Signature: sig}, nil
}

// RavV2 is the wire form of tap.RavV2. metadata is variable-length, so
// unlike the receipt and signature forms it is length-prefixed rather than
// fixed width.
type RavV2 struct {
	CollectionID    tapcrypto.Hash32
	Payer           tapcrypto.Address
	DataService     tapcrypto.Address
	ServiceProvider tapcrypto.Address
	TimestampNs     uint64
	ValueAggHi      uint64
	ValueAggLo      uint64
	Metadata        []byte
}

func ravV2FromTap(m tap.RavV2) RavV2 {
	return RavV2{
		CollectionID:    m.CollectionID,
		Payer:           m.Payer,
		DataService:     m.DataService,
		ServiceProvider: m.ServiceProvider,
		TimestampNs:     m.TimestampNs,
		ValueAggHi:      m.ValueAggregate.Hi,
		ValueAggLo:      m.ValueAggregate.Lo,
		Metadata:        m.Metadata,
	}
}

func (m RavV2) toTap() tap.RavV2 {
	return tap.RavV2{
		CollectionID:    m.CollectionID,
		Payer:           m.Payer,
		DataService:     m.DataService,
		ServiceProvider: m.ServiceProvider,
		TimestampNs:     m.TimestampNs,
		ValueAggregate:  tapcrypto.Uint128{Hi: m.ValueAggHi, Lo: m.ValueAggLo},
		Metadata:        m.Metadata,
	}
}

func (m RavV2) writeTo(w *writer) {
	w.fixed(m.CollectionID.Bytes())
	w.fixed(m.Payer.Bytes())
	w.fixed(m.DataService.Bytes())
	w.fixed(m.ServiceProvider.Bytes())
	w.uint64(m.TimestampNs)
	w.uint64(m.ValueAggHi)
	w.uint64(m.ValueAggLo)
	w.bytesField(m.Metadata)
}

func readRavV2(r *reader) (RavV2, error) {
	var m RavV2
	cid, err := r.fixed(32)
	if err != nil {
		return m, err
	}
	copy(m.CollectionID[:], cid)
	payer, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.Payer = tapcrypto.Address(payer)
	ds, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.DataService = tapcrypto.Address(ds)
	sp, err := r.fixed(20)
	if err != nil {
		return m, err
	}
	m.ServiceProvider = tapcrypto.Address(sp)
	if m.TimestampNs, err = r.uint64(); err != nil {
		return m, err
	}
	if m.ValueAggHi, err = r.uint64(); err != nil {
		return m, err
	}
	if m.ValueAggLo, err = r.uint64(); err != nil {
		return m, err
	}
	meta, err := r.bytesField()
	if err != nil {
		return m, err
	}
	m.Metadata = meta
	return m, nil
}

// SignedRavV2 is the wire form of tap.SignedRavV2.
type SignedRavV2 struct {
	Message   RavV2
	Signature Signature
}

// SignedRavV2FromTap converts a tap.SignedRavV2 to its wire form.
func SignedRavV2FromTap(s tap.SignedRavV2) SignedRavV2 {
	return SignedRavV2{Message: ravV2FromTap(s.Message), Signature: signatureFromTap(s.Signature)}
}

// ToTap converts back to the domain type.
func (s SignedRavV2) ToTap() tap.SignedRavV2 {
	return tap.SignedRavV2{Message: s.Message.toTap(), Signature: s.Signature.toTap()}
}

func (s SignedRavV2) writeTo(w *writer) {
	s.Message.writeTo(w)
	s.Signature.writeTo(w)
}

func readSignedRavV2(r *reader) (SignedRavV2, error) {
	var s SignedRavV2
	msg, err := readRavV2(r)
	if err != nil {
		return s, err
	}
	sig, err := readSignature(r)
	if err != nil {
		return s, err
	}
	return SignedRavV2{Message: msg, Signature: sig}, nil
}

// AggregateReceiptsV2Request is the gRPC request message for the V2
// AggregateReceipts RPC.
type AggregateReceiptsV2Request struct {
	APIVersion  string
	Receipts    []SignedReceiptV2
	PreviousRav *SignedRavV2
}

func (m *AggregateReceiptsV2Request) Marshal() ([]byte, error) {
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

func (m *AggregateReceiptsV2Request) Unmarshal(data []byte) error {
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
	m.Receipts = make([]SignedReceiptV2, n)
	for i := range m.Receipts {
		m.Receipts[i], err = readSignedReceiptV2(r)
		if err != nil {
			return err
		}
	}
	present, err := r.byte()
	if err != nil {
		return err
	}
	if present == 1 {
		rav, err := readSignedRavV2(r)
		if err != nil {
			return err
		}
		m.PreviousRav = &rav
	}
	return nil
}

// AggregateReceiptsV2Response is the gRPC response message for the V2
// AggregateReceipts RPC.
type AggregateReceiptsV2Response struct {
	Rav      SignedRavV2
	Warnings []string
}

func (m *AggregateReceiptsV2Response) Marshal() ([]byte, error) {
	var w writer
	m.Rav.writeTo(&w)
	w.uint32(uint32(len(m.Warnings)))
	for _, s := range m.Warnings {
		w.bytesField([]byte(s))
	}
	return w.bytes(), nil
}

func (m *AggregateReceiptsV2Response) Unmarshal(data []byte) error {
	r := newReader(data)
	rav, err := readSignedRavV2(r)
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
