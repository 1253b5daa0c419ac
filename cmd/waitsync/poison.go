package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kolkov/waitsync/waitsync"
)

func newPoisonCmd(a *app) *cobra.Command {
	var debit int
	cmd := &cobra.Command{
		Use:   "poison",
		Short: "Poison a Mutex with a panicking holder and inspect it",
		Long: `Runs a transfer that debits an account under a Mutex and panics before
crediting the other side. The next holder is granted access together with
a poison error naming where the transfer panicked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := poisonDemo(debit)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, r)
		},
	}
	cmd.Flags().IntVar(&debit, "debit", 30, "amount debited before the panic")
	return cmd
}

type account struct {
	From int
	To   int
}

type poisonReport struct {
	Recovered string `yaml:"recovered"`
	Poisoned  bool   `yaml:"poisoned"`
	Error     string `yaml:"error"`
	From      int    `yaml:"from"`
	To        int    `yaml:"to"`
	Total     int    `yaml:"total"`
	Site      string `yaml:"site"`
}

func (r *poisonReport) text(w io.Writer) {
	fmt.Fprintf(w, "holder panicked: %s\n", r.Recovered)
	fmt.Fprintf(w, "poisoned:        %t\n", r.Poisoned)
	fmt.Fprintf(w, "lock error:      %s\n", r.Error)
	fmt.Fprintf(w, "balances:        from=%d to=%d (total %d)\n", r.From, r.To, r.Total)
	fmt.Fprintf(w, "poisoned at:\n%s", r.Site)
}

// poisonDemo transfers debit between two balances of 100 and panics
// halfway, then inspects the Mutex as the next holder.
func poisonDemo(debit int) (*poisonReport, error) {
	accounts := waitsync.NewMutex(account{From: 100, To: 100})

	recovered := transferAndPanic(accounts, debit)

	g, err := accounts.Lock()
	defer g.Unlock()

	var pe *waitsync.PoisonError[account]
	if !errors.As(err, &pe) {
		return nil, fmt.Errorf("expected a poison error after a panicking holder, got %v", err)
	}

	acct := g.Value()
	return &poisonReport{
		Recovered: fmt.Sprint(recovered),
		Poisoned:  accounts.IsPoisoned(),
		Error:     err.Error(),
		From:      acct.From,
		To:        acct.To,
		Total:     acct.From + acct.To,
		Site:      strings.TrimRight(pe.Site(), "\n") + "\n",
	}, nil
}

func transferAndPanic(accounts *waitsync.Mutex[account], debit int) (recovered any) {
	defer func() { recovered = recover() }()

	g, _ := accounts.Lock()
	defer g.Unlock()

	g.Value().From -= debit
	panic(fmt.Sprintf("transfer of %d aborted before credit", debit))
}
