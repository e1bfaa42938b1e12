package ledgertest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flowdapp/profile-dapp/ledger"
	"github.com/flowdapp/profile-dapp/ledger/access"
	"github.com/flowdapp/profile-dapp/ledger/cadence"
	"github.com/flowdapp/profile-dapp/ledger/crypto"
)

// NewHandler serves the subset of the Access REST API used by access.Client on top of l.
// Unlike Ledger.Mutate, submitted transactions must carry valid signatures for every account
// key that has a public key registered.
func NewHandler(l *Ledger) http.Handler {
	s := &server{l: l}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/scripts", s.executeScript).Methods(http.MethodPost)
	v1.HandleFunc("/transactions", s.sendTransaction).Methods(http.MethodPost)
	v1.HandleFunc("/transaction_results/{id}", s.transactionResult).Methods(http.MethodGet)
	v1.HandleFunc("/blocks", s.blocks).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}", s.account).Methods(http.MethodGet)
	v1.HandleFunc("/node_version_info", s.nodeVersion).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	return r
}

type server struct {
	l *Ledger
}

func (s *server) executeScript(w http.ResponseWriter, r *http.Request) {
	var req access.ScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid script request: "+err.Error())
		return
	}
	code, args, err := decodeScript(req.Script, req.Arguments)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := s.l.Query(r.Context(), ledger.Query{Code: code, Args: args})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := cadence.Encode(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, base64.StdEncoding.EncodeToString(b))
}

func (s *server) sendTransaction(w http.ResponseWriter, r *http.Request) {
	var body access.TransactionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction: "+err.Error())
		return
	}
	tx, err := body.Decode()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := s.l.submitSigned(tx)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body.ID = id.Hex()
	writeJSON(w, http.StatusOK, body)
}

func (s *server) transactionResult(w http.ResponseWriter, r *http.Request) {
	id, err := ledger.ParseIdentifier(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.l.TransactionResult(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body, err := access.EncodeResult(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *server) blocks(w http.ResponseWriter, r *http.Request) {
	if h := r.URL.Query().Get("height"); h != "sealed" && h != "final" {
		writeError(w, http.StatusBadRequest, "only height=sealed and height=final are supported")
		return
	}

	writeJSON(w, http.StatusOK, []access.BlockBody{access.EncodeBlockHeader(s.l.LatestBlock())})
}

func (s *server) account(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := s.l.Account(addr)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, access.EncodeAccount(acc))
}

func (s *server) nodeVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, access.NodeVersionInfo{
		Semver:          s.l.NodeVersion(),
		Commit:          "ledgertest",
		ProtocolVersion: "0",
	})
}

// submitSigned checks the signatures and the proposal key of tx and submits it.
func (l *Ledger) submitSigned(tx *ledger.Transaction) (ledger.TransactionID, error) {
	args := make([]cadence.Value, len(tx.Arguments))
	for i, raw := range tx.Arguments {
		v, err := cadence.Decode(raw)
		if err != nil {
			return ledger.TransactionID{}, fmt.Errorf("invalid argument %d: %w", i, err)
		}
		args[i] = v
	}

	id, err := tx.ID()
	if err != nil {
		return ledger.TransactionID{}, err
	}
	payloadMsg, err := tx.PayloadMessage()
	if err != nil {
		return ledger.TransactionID{}, err
	}
	envelopeMsg, err := tx.EnvelopeMessage()
	if err != nil {
		return ledger.TransactionID{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.mutateErr; err != nil {
		return ledger.TransactionID{}, err
	}
	if _, dup := l.txs[id]; dup {
		return ledger.TransactionID{}, fmt.Errorf("transaction %s was already submitted", id)
	}

	payerSigned := false
	for _, sig := range tx.EnvelopeSignatures {
		if err := l.verifyLocked(sig, envelopeMsg); err != nil {
			return ledger.TransactionID{}, err
		}
		payerSigned = payerSigned || sig.Address == tx.Payer
	}
	if !payerSigned {
		return ledger.TransactionID{}, fmt.Errorf("missing envelope signature of payer %s", tx.Payer)
	}
	for _, sig := range tx.PayloadSignatures {
		if err := l.verifyLocked(sig, payloadMsg); err != nil {
			return ledger.TransactionID{}, err
		}
	}

	if acc, ok := l.accounts[tx.ProposalKey.Address]; ok && int(tx.ProposalKey.KeyIndex) < len(acc.Keys) {
		if want := acc.Keys[tx.ProposalKey.KeyIndex].SequenceNumber; want != tx.ProposalKey.SequenceNumber {
			return ledger.TransactionID{}, fmt.Errorf(
				"invalid proposal key sequence number: expected %d, got %d", want, tx.ProposalKey.SequenceNumber,
			)
		}
	}

	return l.submitLocked(
		id, tx.Script, args, tx.Payer, tx.ProposalKey.Address, tx.ProposalKey.KeyIndex, tx.Authorizers,
	)
}

func (l *Ledger) verifyLocked(sig ledger.TransactionSignature, msg []byte) error {
	acc, ok := l.accounts[sig.Address]
	if !ok {
		return fmt.Errorf("account %s: %w", sig.Address, ErrNotFound)
	}
	key, ok := acc.Key(sig.KeyIndex)
	if !ok {
		return fmt.Errorf("account %s has no key %d", sig.Address, sig.KeyIndex)
	}
	if len(key.PublicKey) == 0 {
		return nil
	}

	pub, err := crypto.DecodePublicKey(key.SigAlgo, key.PublicKey)
	if err != nil {
		return err
	}
	valid, err := pub.Verify(sig.Signature, msg, key.HashAlgo)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("invalid signature for key %d of account %s", sig.KeyIndex, sig.Address)
	}

	return nil
}

func decodeScript(script string, arguments []string) ([]byte, []cadence.Value, error) {
	code, err := base64.StdEncoding.DecodeString(script)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid script: %w", err)
	}
	args := make([]cadence.Value, len(arguments))
	for i, a := range arguments {
		raw, err := base64.StdEncoding.DecodeString(a)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid argument %d: %w", i, err)
		}
		if args[i], err = cadence.Decode(raw); err != nil {
			return nil, nil, fmt.Errorf("invalid argument %d: %w", i, err)
		}
	}

	return code, args, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, access.ErrorBody{Code: status, Message: msg})
}
