package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/soilsense/internal/soil"
)

// ToJSON serializes a result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONResults serializes several results to a pretty JSON array.
func ToJSONResults(results []*Result) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainText renders a human-readable report.
func ToPlainText(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	switch res.Status {
	case StatusAccepted:
		fmt.Fprintf(&sb, "Soil type: %s (%.2f%%)\n", res.SoilType, res.Confidence)
		writeConfidences(&sb, res)
		fmt.Fprintf(&sb, "Recommended crops for %s soil:\n", res.SoilType)
		for _, c := range res.Crops {
			fmt.Fprintf(&sb, "  - %s\n", c)
		}
	case StatusRejected:
		fmt.Fprintf(&sb, "%s (best %.2f%%)\n", res.Reason, res.Confidence)
		writeConfidences(&sb, res)
	default:
		fmt.Fprintf(&sb, "Error: %s\n", res.Message)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func writeConfidences(sb *strings.Builder, res *Result) {
	if len(res.Confidences) == 0 {
		return
	}
	sb.WriteString("Confidences:\n")
	values := res.Confidences.Ordered()
	for i, t := range soil.Types() {
		fmt.Fprintf(sb, "  %-9s %6.2f%%\n", t.String()+":", values[i])
	}
}

// ToCSV exports one row per result with a header. Confidence columns follow
// soil type order; crops are joined with "; ".
func ToCSV(results ...*Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"status", "soil_type", "confidence"}
	for _, name := range soil.Names() {
		header = append(header, strings.ToLower(name))
	}
	header = append(header, "crops", "message")
	if err := w.Write(header); err != nil {
		return "", err
	}

	for i, r := range results {
		if r == nil {
			return "", fmt.Errorf("result %d is nil", i)
		}
		row := []string{string(r.Status), r.SoilType, formatPercent(r.Confidence, r.Confidences != nil)}
		for _, t := range soil.Types() {
			v, ok := r.Confidences[t]
			row = append(row, formatPercent(v, ok))
		}
		names := make([]string, 0, len(r.Crops))
		for _, c := range r.Crops {
			names = append(names, c.Name)
		}
		msg := r.Message
		if msg == "" {
			msg = r.Reason
		}
		row = append(row, strings.Join(names, "; "), msg)
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

func formatPercent(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return fmt.Sprintf("%.2f", v)
}

// ValidateResult performs consistency checks on a finished result.
func ValidateResult(res *Result) error {
	if res == nil {
		return errors.New("nil result")
	}
	switch res.Status {
	case StatusAccepted:
		if _, err := soil.ParseType(res.SoilType); err != nil {
			return fmt.Errorf("accepted result: %w", err)
		}
		if len(res.Crops) == 0 {
			return errors.New("accepted result has no crops")
		}
	case StatusRejected:
		if res.Reason == "" {
			return errors.New("rejected result has no reason")
		}
		if res.SoilType != "" || len(res.Crops) > 0 {
			return errors.New("rejected result carries a classification")
		}
	case StatusDecodeError, StatusFailed:
		if res.Message == "" {
			return fmt.Errorf("%s result has no message", res.Status)
		}
	default:
		return fmt.Errorf("unknown status %q", res.Status)
	}
	for t, v := range res.Confidences {
		if !t.Valid() {
			return fmt.Errorf("confidence for unknown soil type %d", int(t))
		}
		if v < 0 || v > 100 {
			return fmt.Errorf("confidence for %s out of range: %v", t, v)
		}
	}
	return nil
}
