package rpcpb

// GetSigningKeyRequest is sent to the key-source daemon to retrieve the
// aggregator's signing key for a given service identity.
type GetSigningKeyRequest struct {
	ServiceID string
}

func (m *GetSigningKeyRequest) Marshal() ([]byte, error) {
	var w writer
	w.bytesField([]byte(m.ServiceID))
	return w.bytes(), nil
}

func (m *GetSigningKeyRequest) Unmarshal(data []byte) error {
	r := newReader(data)
	id, err := r.bytesField()
	if err != nil {
		return err
	}
	m.ServiceID = string(id)
	return nil
}

// GetSigningKeyResponse carries the raw private key bytes (32 bytes,
// secp256k1 scalar) and the derived address, mirroring the shape the
// original TEE key daemon returns.
type GetSigningKeyResponse struct {
	PrivateKey []byte
	Address    []byte
	Success    bool
	Message    string
}

func (m *GetSigningKeyResponse) Marshal() ([]byte, error) {
	var w writer
	w.bytesField(m.PrivateKey)
	w.bytesField(m.Address)
	if m.Success {
		w.byte(1)
	} else {
		w.byte(0)
	}
	w.bytesField([]byte(m.Message))
	return w.bytes(), nil
}

func (m *GetSigningKeyResponse) Unmarshal(data []byte) error {
	r := newReader(data)
	pk, err := r.bytesField()
	if err != nil {
		return err
	}
	m.PrivateKey = pk
	addr, err := r.bytesField()
	if err != nil {
		return err
	}
	m.Address = addr
	success, err := r.byte()
	if err != nil {
		return err
	}
	m.Success = success == 1
	msg, err := r.bytesField()
	if err != nil {
		return err
	}
	m.Message = string(msg)
	return nil
}
