package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stellar/go/xdr"

	"github.com/withObsrvr/ttp-processor-demo/effects-processor/processor"
)

var analyzeFlags struct {
	network string
	tx      string
	result  string
	meta    string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one transaction and print its effects as JSON",
	Long: `Analyze decodes a base64 transaction envelope together with its optional
result and meta, and prints the effects report. Without meta the transaction
is treated as ephemeral and only the fee is reported.

When --tx is omitted a JSON object {"network","tx","result","meta"} is read
from stdin. Flags that are set take precedence over its fields.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFlags.tx == "" {
			if err := readStdinRequest(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		p := processor.New(cfg, logger)
		defer p.Close()

		report, err := p.Process(cmd.Context(), processor.Request{
			Network:  analyzeFlags.network,
			Envelope: processor.FromBase64[xdr.TransactionEnvelope](analyzeFlags.tx),
			Result:   processor.FromBase64[xdr.TransactionResult](analyzeFlags.result),
			Meta:     processor.FromBase64[xdr.TransactionMeta](analyzeFlags.meta),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", processor.ErrorKind(err), err)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.network, "network", "", "network name or passphrase (defaults to the configured network)")
	f.StringVar(&analyzeFlags.tx, "tx", "", "base64 transaction envelope")
	f.StringVar(&analyzeFlags.result, "result", "", "base64 transaction result")
	f.StringVar(&analyzeFlags.meta, "meta", "", "base64 transaction meta")
	rootCmd.AddCommand(analyzeCmd)
}

func readStdinRequest(r io.Reader) error {
	var req struct {
		Network string `json:"network"`
		Tx      string `json:"tx"`
		Result  string `json:"result"`
		Meta    string `json:"meta"`
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("no transaction given: pass --tx or a JSON request on stdin")
		}
		return fmt.Errorf("read request from stdin: %w", err)
	}
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&analyzeFlags.network, req.Network)
	fill(&analyzeFlags.tx, req.Tx)
	fill(&analyzeFlags.result, req.Result)
	fill(&analyzeFlags.meta, req.Meta)
	return nil
}
