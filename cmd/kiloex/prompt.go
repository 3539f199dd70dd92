package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"kiloex-bot/internal/cfg"
	"kiloex-bot/internal/exchange/kiloex"
)

// The menus the mini-app web client offers; used for the interactive mode.
var (
	marginChoices      = []float64{10, 50, 100}
	leverageChoices    = []int{50, 100, 150}
	settleDelayChoices = []int{30, 60, 300, 3600}
)

// configureInteractive prompts on stdin for product mode, margin, leverage
// and settle delay. The resulting settings are immutable for the rest of
// the process.
func configureInteractive(c *cfg.Settings, products []kiloex.Product) error {
	reader := bufio.NewReader(os.Stdin)

	mode, err := promptChoice(reader, "Select product mode", []string{
		"Default (BTC)",
		"Random (changes each order)",
		"Manual selection",
	})
	if err != nil {
		return err
	}
	switch mode {
	case 0:
		c.ProductSelector = cfg.ProductDefault
	case 1:
		c.ProductSelector = cfg.ProductRandom
	case 2:
		if len(products) == 0 {
			return fmt.Errorf("product catalog unavailable for manual selection")
		}
		names := make([]string, len(products))
		for i, p := range products {
			names[i] = p.Base
		}
		idx, err := promptChoice(reader, "Select trading pair", names)
		if err != nil {
			return err
		}
		c.ProductSelector = strconv.Itoa(products[idx].ID)
	}

	marginNames := make([]string, len(marginChoices))
	for i, m := range marginChoices {
		marginNames[i] = fmt.Sprintf("%.0f USDT", m)
	}
	idx, err := promptChoice(reader, "Select margin amount", marginNames)
	if err != nil {
		return err
	}
	c.Margin = marginChoices[idx]

	leverageNames := make([]string, len(leverageChoices))
	for i, l := range leverageChoices {
		leverageNames[i] = fmt.Sprintf("%dx", l)
	}
	idx, err = promptChoice(reader, "Select leverage", leverageNames)
	if err != nil {
		return err
	}
	c.Leverage = leverageChoices[idx]

	delayNames := []string{"30 seconds", "1 minute", "5 minutes", "1 hour"}
	idx, err = promptChoice(reader, "Select settle delay", delayNames)
	if err != nil {
		return err
	}
	c.SettleDelay = settleDelayChoices[idx]

	return nil
}

// promptChoice prints a numbered menu and reads a 1-based selection.
func promptChoice(reader *bufio.Reader, title string, options []string) (int, error) {
	fmt.Printf("%s:\n", title)
	for i, opt := range options {
		fmt.Printf("  %d) %s\n", i+1, opt)
	}
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("read selection: %w", err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Printf("enter a number between 1 and %d\n", len(options))
	}
}
