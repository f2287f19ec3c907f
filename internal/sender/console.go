package sender

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const maxLineBytes = 1 << 20

// Summary tallies console outcomes.
type Summary struct {
	Acked  int
	Failed int
}

// RunConsole sends one message per non-blank input line until EOF. Blank lines
// do not consume a sequence id. Outcomes are printed to out; a failed message
// never stops the loop.
func (s *Sender) RunConsole(ctx context.Context, in io.Reader, out io.Writer) (Summary, error) {
	var sum Summary
	prev := s.cfg.OnResend
	s.cfg.OnResend = func(seq uint64, retry int) {
		fmt.Fprintf(out, "Timeout, resend seq %d\n", seq)
		if prev != nil {
			prev(seq, retry)
		}
	}
	defer func() { s.cfg.OnResend = prev }()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	fmt.Fprintln(out, "Client ready")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := s.SendAndConfirm(ctx, line)
		if err != nil {
			return sum, err
		}
		if res.Acked {
			sum.Acked++
			fmt.Fprintf(out, "ACK for seq %d\n", res.Seq)
			continue
		}
		sum.Failed++
		fmt.Fprintf(out, "ERROR: seq %d failed after %d retries\n", res.Seq, res.Retries)
	}
	if err := scanner.Err(); err != nil {
		return sum, fmt.Errorf("sender: read input: %w", err)
	}
	fmt.Fprintln(out)
	return sum, nil
}
