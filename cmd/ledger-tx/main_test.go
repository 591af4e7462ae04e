package main

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/latticechain/ledgerd/crypto"
)

func TestRunRequiresCoreFlags(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()

	code := run([]string{}, w, w)
	w.Close()
	if code != 1 {
		t.Errorf("run() = %d, want 1 when required flags are missing", code)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()

	code := run([]string{"--bogus"}, w, w)
	w.Close()
	if code != 2 {
		t.Errorf("run() = %d, want 2 for an unknown flag", code)
	}
}

func TestRunPrintsSubmittableEnvelope(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer stderrR.Close()

	args := []string{
		"--private-key", bytesToHex(priv.Bytes()),
		"--sender", "0000000000000000000000000000000000000000000000000000000000000001",
		"--recipient", "0000000000000000000000000000000000000000000000000000000000000002",
		"--amount", "15",
		"--previous-transaction-id", "0000000000000000000000000000000000000000000000000000000000000000",
	}

	code := run(args, stdoutW, stderrW)
	stdoutW.Close()
	stderrW.Close()
	if code != 0 {
		var buf bytes.Buffer
		buf.ReadFrom(stderrR)
		t.Fatalf("run() = %d, want 0; stderr: %s", code, buf.String())
	}

	var buf bytes.Buffer
	buf.ReadFrom(stdoutR)

	var envelope struct {
		JSONRPC string        `json:"jsonrpc"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
		ID      int           `json:"id"`
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		t.Fatalf("Unmarshal stdout %q: %v", buf.String(), err)
	}
	if envelope.Method != "submitTransaction" || len(envelope.Params) != 1 {
		t.Errorf("envelope = %+v, want method submitTransaction with one param", envelope)
	}
}

func bytesToHex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
