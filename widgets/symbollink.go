// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package widgets

import (
	"log"

	"gioui.org/font"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/inkeliz/giohyperlink"
)

const futuresUrlPrefix = "https://www.binance.com/en/futures/"

// SymbolLink renders a symbol name which opens the exchange page of
// that symbol in the browser.
type SymbolLink struct {
	symbol string
	button widget.Clickable
}

func (l *SymbolLink) SetSymbol(symbol string) {
	l.symbol = symbol
}

func (l *SymbolLink) Symbol() string {
	return l.symbol
}

func (l *SymbolLink) Layout(th *material.Theme, gtx layout.Context) layout.Dimensions {
	if l.button.Clicked(gtx) {
		if err := giohyperlink.Open(futuresUrlPrefix + l.symbol); err != nil {
			log.Printf("error: opening link: %v", err)
		}
	}
	if l.button.Hovered() {
		pointer.CursorPointer.Add(gtx.Ops)
	}
	return l.button.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		label := material.Label(th, unit.Sp(14), l.symbol)
		label.Font.Weight = font.Bold
		return label.Layout(gtx)
	})
}
