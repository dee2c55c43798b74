package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/line-engine/pkg/models"
)

func TestOddsQuoteValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		quote   models.OddsQuote
		wantErr error
	}{
		{"valid spread", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketSpread, Side: models.SideHome, Line: models.Float(-3.5), Price: -110, ObservedAt: now}, nil},
		{"valid moneyline", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketMoneyline, Side: models.SideAway, Price: 145, ObservedAt: now}, nil},
		{"zero price", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketTotal, Side: models.SideOver, Line: models.Float(47.5), ObservedAt: now}, models.ErrInvalidPrice},
		{"price +50", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketMoneyline, Side: models.SideHome, Price: 50, ObservedAt: now}, models.ErrInvalidPrice},
		{"price -99", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketMoneyline, Side: models.SideAway, Price: -99, ObservedAt: now}, models.ErrInvalidPrice},
		{"even money -100", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketMoneyline, Side: models.SideAway, Price: -100, ObservedAt: now}, nil},
		{"total without line", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketTotal, Side: models.SideOver, Price: -110, ObservedAt: now}, models.ErrMissingLine},
		{"moneyline with line", models.OddsQuote{SportsbookID: "dk", MarketKey: models.MarketMoneyline, Side: models.SideHome, Line: models.Float(1), Price: -110, ObservedAt: now}, models.ErrUnexpectedLine},
		{"unknown market", models.OddsQuote{SportsbookID: "dk", MarketKey: "futures", Side: models.SideHome, Price: 500, ObservedAt: now}, models.ErrUnknownMarket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quote.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLineSnapshotQuotes(t *testing.T) {
	snap := models.LineSnapshot{
		Sportsbook: "fanduel",
		Market:     models.MarketSpread,
		Line:       models.Float(-3.5),
		OverPrice:  -105,
		UnderPrice: -115,
		ObservedAt: time.Now(),
	}

	quotes := snap.Quotes()
	if len(quotes) != 2 {
		t.Fatalf("Quotes() returned %d quotes, want 2", len(quotes))
	}
	if quotes[0].Side != models.SideHome || quotes[0].Price != -105 {
		t.Errorf("first quote = %+v, want home -105", quotes[0])
	}
	if quotes[1].Side != models.SideAway || quotes[1].Price != -115 {
		t.Errorf("second quote = %+v, want away -115", quotes[1])
	}
	if err := snap.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	snap.UnderPrice = 0
	if err := snap.Validate(); !errors.Is(err, models.ErrInvalidPrice) {
		t.Errorf("Validate() error = %v, want ErrInvalidPrice", err)
	}
}
