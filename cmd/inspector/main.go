package main

import (
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/solperp/permitgate/internal/pda"
	"github.com/solperp/permitgate/internal/permit"
)

// inspector decodes a canonical permit envelope from the command line
// and prints its fields plus the on-chain record addresses it implies.
func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <envelope-hex-or-base64>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	raw, err := decodeInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	env, err := permit.Decode(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printEnvelope(env)
	printRecords(env)
}

func decodeInput(s string) ([]byte, error) {
	if raw, err := hex.DecodeString(s); err == nil {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("input is neither hex nor base64")
}

func printEnvelope(env *permit.PermitEnvelopeV1) {
	fmt.Printf("program id:     %s\n", env.Domain.ProgramID)
	fmt.Printf("version:        %d\n", env.Domain.Version)
	fmt.Printf("cluster:        %s\n", env.Domain.Cluster)
	fmt.Printf("authorizer:     %s\n", env.Authorizer)
	fmt.Printf("key type:       %d\n", env.KeyType)
	fmt.Printf("action:         %s (tag %d)\n", permit.ActionName(env.Action), permit.ActionTag(env.Action))
	fmt.Printf("expires unix:   %d\n", env.ExpiresUnix)
	fmt.Printf("max fee quote:  %d\n", env.MaxFeeQuote)
	fmt.Printf("nonce:          %d\n", env.Nonce)
	fmt.Printf("risk affecting: %t\n", env.RiskAffecting())
	if env.Relayer != nil {
		fmt.Printf("relayer:        %s\n", env.Relayer)
	}
	if floor := env.Floor(); floor != nil {
		fmt.Printf("health floor:   metric=%d min=%d\n", floor.Metric, floor.Min)
	}

	switch m := env.Mode.(type) {
	case permit.ModeSequence:
		fmt.Printf("replay mode:    sequence expected=%d\n", m.Expected)
	case permit.ModeNonce:
		fmt.Printf("replay mode:    nonce salt=%s\n", hex.EncodeToString(m.Salt[:]))
	case permit.ModeAllowance:
		fmt.Printf("replay mode:    allowance id=%s\n", hex.EncodeToString(m.ID[:]))
	case permit.ModeHlWindow:
		fmt.Printf("replay mode:    window k=%d\n", m.K)
	}
}

func printRecords(env *permit.PermitEnvelopeV1) {
	for _, line := range recordLines(env) {
		fmt.Println(line)
	}
}

// recordLines derives the on-chain record addresses the envelope
// implies. The allowance record is omitted: its seeds take the owner
// pubkey and the numeric allowance id, neither of which the envelope
// carries.
func recordLines(env *permit.PermitEnvelopeV1) []string {
	programID := env.Domain.ProgramID
	var lines []string

	switch m := env.Mode.(type) {
	case permit.ModeNonce:
		if rec, err := pda.UsedNonceRecord(programID, env.Authorizer, m.Salt[:]); err == nil {
			lines = append(lines, fmt.Sprintf("used nonce:     %s (bump %d)", rec.Address, rec.Bump))
		}
	case permit.ModeHlWindow:
		if rec, err := pda.NonceWindowRecord(programID, env.Authorizer); err == nil {
			lines = append(lines, fmt.Sprintf("nonce window:   %s (bump %d)", rec.Address, rec.Bump))
		}
	}
	return lines
}
