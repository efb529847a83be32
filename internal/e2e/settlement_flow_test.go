// Package e2e drives the whole pipeline in process: market documents are
// enqueued on the inbox, the router applies them to master data, prices
// and time series, the engine settles what became ready and the outbox
// carries the receipts back out. Only the hub transport is simulated.
package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	customerdomain "github.com/nordvolt/voltra/internal/customer/domain"
	customerrepository "github.com/nordvolt/voltra/internal/customer/repository"
	customerservice "github.com/nordvolt/voltra/internal/customer/service"
	"github.com/nordvolt/voltra/internal/datahub"
	inboxdomain "github.com/nordvolt/voltra/internal/inbox/domain"
	inboxrepository "github.com/nordvolt/voltra/internal/inbox/repository"
	"github.com/nordvolt/voltra/internal/inbox/router"
	inboxservice "github.com/nordvolt/voltra/internal/inbox/service"
	"github.com/nordvolt/voltra/internal/market"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	mprepository "github.com/nordvolt/voltra/internal/meteringpoint/repository"
	mpservice "github.com/nordvolt/voltra/internal/meteringpoint/service"
	"github.com/nordvolt/voltra/internal/outbox/dispatch"
	outboxdomain "github.com/nordvolt/voltra/internal/outbox/domain"
	outboxrepository "github.com/nordvolt/voltra/internal/outbox/repository"
	outboxservice "github.com/nordvolt/voltra/internal/outbox/service"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	pricerepository "github.com/nordvolt/voltra/internal/price/repository"
	priceservice "github.com/nordvolt/voltra/internal/price/service"
	productdomain "github.com/nordvolt/voltra/internal/product/domain"
	productrepository "github.com/nordvolt/voltra/internal/product/repository"
	productservice "github.com/nordvolt/voltra/internal/product/service"
	"github.com/nordvolt/voltra/internal/seed"
	settlementdomain "github.com/nordvolt/voltra/internal/settlement/domain"
	"github.com/nordvolt/voltra/internal/settlement/engine"
	settlementrepository "github.com/nordvolt/voltra/internal/settlement/repository"
	settlementservice "github.com/nordvolt/voltra/internal/settlement/service"
	spotdomain "github.com/nordvolt/voltra/internal/spotprice/domain"
	spotrepository "github.com/nordvolt/voltra/internal/spotprice/repository"
	spotservice "github.com/nordvolt/voltra/internal/spotprice/service"
	supplydomain "github.com/nordvolt/voltra/internal/supply/domain"
	supplyrepository "github.com/nordvolt/voltra/internal/supply/repository"
	supplyservice "github.com/nordvolt/voltra/internal/supply/service"
	tsdomain "github.com/nordvolt/voltra/internal/timeseries/domain"
	tsrepository "github.com/nordvolt/voltra/internal/timeseries/repository"
	tsservice "github.com/nordvolt/voltra/internal/timeseries/service"
	wholesaledomain "github.com/nordvolt/voltra/internal/wholesale/domain"
	wholesalerepository "github.com/nordvolt/voltra/internal/wholesale/repository"
	wholesaleservice "github.com/nordvolt/voltra/internal/wholesale/service"
)

const (
	supplierGLN  = "5790000701414"
	hubGLN       = "5790001330552"
	gridGLN      = "5790001122331"
	energinetGLN = "5790000432752"

	flowGSRN    = "571313180000000005"
	unknownGSRN = "571313180000000999"
)

var flowPeriodStart = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// pipeline holds every worker and service wired the way the application
// wires them, over a shared in-memory database.
type pipeline struct {
	db  *gorm.DB
	now time.Time

	inbox    inboxdomain.Service
	router   *router.Worker
	engine   *engine.Worker
	dispatch *dispatch.Worker

	supplies    supplydomain.Service
	settlements settlementdomain.Service
	spot        spotdomain.Service

	settlementRepo settlementdomain.Repository
}

func newPipeline(t *testing.T, name string) *pipeline {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.SupplierIdentity{},
		&customerdomain.Customer{},
		&mpdomain.MeteringPoint{},
		&supplydomain.Supply{},
		&productdomain.SupplierProduct{},
		&productdomain.SupplyProductPeriod{},
		&productdomain.SupplierMargin{},
		&pricedomain.Price{},
		&pricedomain.PricePoint{},
		&pricedomain.PriceLink{},
		&spotdomain.SpotPrice{},
		&tsdomain.TimeSeries{},
		&tsdomain.Observation{},
		&settlementdomain.Settlement{},
		&settlementdomain.SettlementLine{},
		&settlementdomain.SettlementIssue{},
		&settlementdomain.DocumentSequence{},
		&wholesaledomain.AggregatedTimeSeries{},
		&wholesaledomain.WholesaleSettlement{},
		&inboxdomain.InboxMessage{},
		&outboxdomain.OutboxMessage{},
	))

	require.NoError(t, seed.EnsureSupplierIdentity(db, supplierGLN, "Nordvolt Energi A/S"))
	require.NoError(t, seed.EnsureDefaultProduct(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	cfg := config.Config{
		SupplierGLN:            supplierGLN,
		InboxPollInterval:      time.Second,
		InboxBatchSize:         20,
		InboxMaxAttempts:       5,
		OutboxPollInterval:     time.Second,
		OutboxBatchSize:        20,
		OutboxMaxRetries:       5,
		OutboxRetryBaseDelay:   time.Second,
		SettlementPollInterval: time.Second,
		SettlementBatchSize:    10,
	}
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFixedClock(now)

	mpRepo := mprepository.Provide()
	tsRepo := tsrepository.Provide()
	settlementRepo := settlementrepository.Provide()
	inboxRepo := inboxrepository.Provide()
	outboxRepo := outboxrepository.Provide()

	customerSvc := customerservice.New(customerservice.Params{
		DB: db, Log: log, GenID: node, Repo: customerrepository.Provide(),
	})
	mpSvc := mpservice.New(mpservice.Params{
		DB: db, Log: log, GenID: node, Repo: mpRepo,
	})
	productSvc := productservice.New(productservice.Params{
		DB: db, Log: log, GenID: node, Repo: productrepository.Provide(),
	})
	supplySvc := supplyservice.New(supplyservice.Params{
		DB: db, Log: log, GenID: node, Repo: supplyrepository.Provide(),
		MPSvc: mpSvc, CustomerSvc: customerSvc, ProductSvc: productSvc,
	})
	priceSvc := priceservice.New(priceservice.Params{
		DB: db, Log: log, GenID: node, Repo: pricerepository.Provide(), MPRepo: mpRepo,
	})
	spotSvc := spotservice.New(spotservice.Params{
		DB: db, Log: log, GenID: node, Repo: spotrepository.Provide(),
	})
	tsSvc := tsservice.New(tsservice.Params{
		DB: db, Log: log, GenID: node, Repo: tsRepo, MPRepo: mpRepo,
	})
	wholesaleSvc := wholesaleservice.New(wholesaleservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: wholesalerepository.Provide(),
	})
	inboxSvc := inboxservice.New(inboxservice.Params{
		DB: db, Log: log, GenID: node, Repo: inboxRepo,
	})
	outboxSvc := outboxservice.New(outboxservice.Params{
		DB: db, Log: log, GenID: node, Repo: outboxRepo,
	})
	settlementSvc := settlementservice.New(settlementservice.Params{
		DB: db, Log: log, Repo: settlementRepo,
	})

	routerWorker := router.NewWorker(router.Params{
		DB: db, Cfg: cfg, Log: log, Clock: clk, Repo: inboxRepo,
		CustomerSvc: customerSvc, SupplySvc: supplySvc, MPSvc: mpSvc,
		TimeSeriesSvc: tsSvc, PriceSvc: priceSvc, WholesaleSvc: wholesaleSvc,
		OutboxSvc: outboxSvc,
	})
	engineWorker := engine.NewWorker(engine.Params{
		Cfg:    cfg,
		Market: config.StaticMarketConfigHolder(config.DefaultMarketConfig()),
		DB:     db, Log: log, GenID: node, Clock: clk,
		Repo: settlementRepo, TSRepo: tsRepo, MPRepo: mpRepo,
		Supplies: supplySvc, Products: productSvc, Prices: priceSvc, Spot: spotSvc,
	})
	dispatchWorker := dispatch.NewWorker(dispatch.Params{
		DB: db, Cfg: cfg, Log: log, Clock: clk, Repo: outboxRepo,
		Transport: datahub.NewTransport(cfg, log),
	})

	return &pipeline{
		db:             db,
		now:            now,
		inbox:          inboxSvc,
		router:         routerWorker,
		engine:         engineWorker,
		dispatch:       dispatchWorker,
		supplies:       supplySvc,
		settlements:    settlementSvc,
		spot:           spotSvc,
		settlementRepo: settlementRepo,
	}
}

// deliver enqueues one document and routes it, asserting a clean outcome.
func (p *pipeline) deliver(t *testing.T, doc []byte) *inboxdomain.InboxMessage {
	t.Helper()
	ctx := context.Background()
	msg, err := p.inbox.Enqueue(ctx, doc)
	require.NoError(t, err)
	require.NoError(t, p.router.RunOnce(ctx))

	stored, err := p.inbox.GetByMessageID(ctx, msg.MessageID)
	require.NoError(t, err)
	require.True(t, stored.IsProcessed)
	require.Empty(t, stored.LastError)
	return stored
}

func (p *pipeline) ingestSpotDay(t *testing.T, mwhRate string) {
	t.Helper()
	quotes := make([]spotdomain.Quote, 0, 24)
	rate := decimal.RequireFromString(mwhRate)
	for i := 0; i < 24; i++ {
		quotes = append(quotes, spotdomain.Quote{
			Hour:     flowPeriodStart.Add(time.Duration(i) * time.Hour),
			PriceMWh: rate,
		})
	}
	n, err := p.spot.Ingest(context.Background(), market.PriceAreaDK1, quotes)
	require.NoError(t, err)
	require.Equal(t, 24, n)
}

func (p *pipeline) meteringPoint(t *testing.T) *mpdomain.MeteringPoint {
	t.Helper()
	var mp mpdomain.MeteringPoint
	require.NoError(t, p.db.Where("gsrn = ?", flowGSRN).First(&mp).Error)
	return &mp
}

func (p *pipeline) settlementsFor(t *testing.T, mpID int64) []settlementdomain.Settlement {
	t.Helper()
	settlements, err := p.settlementRepo.FindForPeriod(context.Background(), p.db, mpID, flowPeriodStart)
	require.NoError(t, err)
	return settlements
}

func (p *pipeline) linesByCharge(t *testing.T, settlementID int64) map[string]settlementdomain.SettlementLine {
	t.Helper()
	lines, err := p.settlementRepo.ListLines(context.Background(), p.db, settlementID)
	require.NoError(t, err)
	byCharge := make(map[string]settlementdomain.SettlementLine, len(lines))
	for _, line := range lines {
		byCharge[line.Source+"/"+line.ChargeID] = line
	}
	return byCharge
}

// requireDecimal compares by value: sqlite hands numeric columns back as
// floats, so trailing zeros do not survive the round trip.
func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), got.String())
}

// masterDataDoc announces the metering point before anything references it.
const masterDataDoc = `{
  "NotifyMeteringPointCharacteristics_MarketDocument": {
    "mRID": {"value": "MSG-MP-1"},
    "process.processType": {"value": "E06"},
    "createdDateTime": {"value": "2024-12-15T09:00:00Z"},
    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
    "MktActivityRecord": [{
      "mRID": {"value": "TX-MP-1"},
      "validityStart_DateAndOrTime.dateTime": {"value": "2025-01-01T00:00Z"},
      "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
      "marketEvaluationPoint.type": {"value": "E17"},
      "meteringMethod": {"value": "D01"},
      "settlementMethod": {"value": "E02"},
      "meterReadingPeriodicity": {"value": "PT1H"},
      "physicalConnectionState": {"value": "E22"},
      "meteringGridArea_Domain.mRID": {"value": "344"},
      "gridOperator_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001122331"},
      "usagePointLocation.mainAddress": {
        "streetName": {"value": "Kastanievej"},
        "buildingNumber": {"value": "12"},
        "postalCode": {"value": "8000"},
        "cityName": {"value": "Aarhus"}
      }
    }]
  }
}`

// supplierChangeDoc confirms us as supplier from the new year.
const supplierChangeDoc = `{
  "ConfirmRequestChangeOfSupplier_MarketDocument": {
    "mRID": {"value": "MSG-SUPPLY-1"},
    "process.processType": {"value": "E03"},
    "createdDateTime": {"value": "2024-12-20T09:00:00Z"},
    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
    "MktActivityRecord": [{
      "mRID": {"value": "TX-SUPPLY-1"},
      "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
      "start_DateAndOrTime.dateTime": {"value": "2025-01-01T00:00Z"},
      "customer_MarketParticipant.name": {"value": "Jens Hansen"},
      "customer_MarketParticipant.mRID": {"codingScheme": "ARR", "value": "0101701234"}
    }]
  }
}`

const supplierRejectionDoc = `{
  "RejectRequestChangeOfSupplier_MarketDocument": {
    "mRID": {"value": "MSG-REJECT-1"},
    "process.processType": {"value": "E03"},
    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
    "MktActivityRecord": [{
      "mRID": {"value": "TX-REJECT-1"},
      "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
      "start_DateAndOrTime.dateTime": {"value": "2025-01-01T00:00Z"},
      "reason.text": {"value": "another supplier holds a newer request"}
    }]
  }
}`

// chargeCatalogDoc carries the D18 descriptions of every charge the
// validator demands: net tariff, system tariff, transmission and the
// electricity tax.
const chargeCatalogDoc = `{
  "NotifyChargeInformation_MarketDocument": {
    "mRID": {"value": "MSG-D18-1"},
    "businessReason": {"value": "D18"},
    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
    "Series": [
      {
        "chargeType.mRID": {"value": "NT-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001122331"},
        "chargeType.type": {"value": "D03"},
        "chargeGroup": {"value": "NetTariff"},
        "chargeType.name": {"value": "Nettarif C time"},
        "priceTimeFrame": {"value": "PT1H"},
        "transparentInvoicing": true,
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      },
      {
        "chargeType.mRID": {"value": "ST-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "chargeType.type": {"value": "D03"},
        "chargeGroup": {"value": "SystemTariff"},
        "chargeType.name": {"value": "Systemtarif"},
        "priceTimeFrame": {"value": "PT1H"},
        "transparentInvoicing": true,
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      },
      {
        "chargeType.mRID": {"value": "TR-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "chargeType.type": {"value": "D03"},
        "chargeGroup": {"value": "Transmission"},
        "chargeType.name": {"value": "Transmissionstarif"},
        "priceTimeFrame": {"value": "PT1H"},
        "transparentInvoicing": true,
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      },
      {
        "chargeType.mRID": {"value": "EA-001"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "chargeType.type": {"value": "D03"},
        "chargeGroup": {"value": "Tax"},
        "chargeType.name": {"value": "Elafgift"},
        "priceTimeFrame": {"value": "PT1H"},
        "taxIndicator": true,
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      }
    ]
  }
}`

// flatRatesDoc prices the Energinet charges with one rate each from the
// start of February.
const flatRatesDoc = `{
  "NotifyChargeInformation_MarketDocument": {
    "mRID": {"value": "MSG-D08-FLAT"},
    "businessReason": {"value": "D08"},
    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
    "Series": [
      {
        "chargeType.mRID": {"value": "ST-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "Period": {
          "resolution": {"value": "PT1H"},
          "timeInterval": {"start": {"value": "2025-02-01T00:00Z"}, "end": {"value": "2025-04-01T00:00Z"}},
          "Point": [{"position": {"value": 1}, "price.amount": {"value": "0.055"}}]
        }
      },
      {
        "chargeType.mRID": {"value": "TR-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "Period": {
          "resolution": {"value": "PT1H"},
          "timeInterval": {"start": {"value": "2025-02-01T00:00Z"}, "end": {"value": "2025-04-01T00:00Z"}},
          "Point": [{"position": {"value": 1}, "price.amount": {"value": "0.045"}}]
        }
      },
      {
        "chargeType.mRID": {"value": "EA-001"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "Period": {
          "resolution": {"value": "PT1H"},
          "timeInterval": {"start": {"value": "2025-02-01T00:00Z"}, "end": {"value": "2025-04-01T00:00Z"}},
          "Point": [{"position": {"value": 1}, "price.amount": {"value": "0.76"}}]
        }
      }
    ]
  }
}`

// chargeLinksDoc attaches all four charges to the metering point.
const chargeLinksDoc = `{
  "NotifyChargeLinks_MarketDocument": {
    "mRID": {"value": "MSG-D17-1"},
    "businessReason": {"value": "D17"},
    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
    "Series": [
      {
        "chargeType.mRID": {"value": "NT-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001122331"},
        "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      },
      {
        "chargeType.mRID": {"value": "ST-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      },
      {
        "chargeType.mRID": {"value": "TR-2025"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      },
      {
        "chargeType.mRID": {"value": "EA-001"},
        "chargeTypeOwner_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000432752"},
        "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
        "timeInterval": {"start": {"value": "2025-01-01T00:00Z"}}
      }
    ]
  }
}`

// netTariffRatesDoc prices the grid tariff hour by hour for the metered
// day, with the evening peak at triple rate.
func netTariffRatesDoc(t *testing.T) []byte {
	t.Helper()
	points := make([]map[string]any, 0, 24)
	for i := 0; i < 24; i++ {
		rate := "0.30"
		if i >= 17 && i <= 20 {
			rate = "0.90"
		}
		points = append(points, map[string]any{
			"position":     map[string]any{"value": i + 1},
			"price.amount": map[string]any{"value": rate},
		})
	}
	doc := map[string]any{
		"NotifyChargeInformation_MarketDocument": map[string]any{
			"mRID":           map[string]any{"value": "MSG-D08-NT"},
			"businessReason": map[string]any{"value": "D08"},
			"sender_MarketParticipant.mRID": map[string]any{
				"codingScheme": "A10", "value": hubGLN,
			},
			"receiver_MarketParticipant.mRID": map[string]any{
				"codingScheme": "A10", "value": supplierGLN,
			},
			"Series": []map[string]any{{
				"chargeType.mRID": map[string]any{"value": "NT-2025"},
				"chargeTypeOwner_MarketParticipant.mRID": map[string]any{
					"codingScheme": "A10", "value": gridGLN,
				},
				"Period": map[string]any{
					"resolution": map[string]any{"value": "PT1H"},
					"timeInterval": map[string]any{
						"start": map[string]any{"value": "2025-03-01T00:00Z"},
						"end":   map[string]any{"value": "2025-03-02T00:00Z"},
					},
					"Point": points,
				},
			}},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

// meteredDataDoc delivers one full day of hourly readings at a constant
// quantity.
func meteredDataDoc(t *testing.T, messageID, transactionID, gsrn, quantity, quality string) []byte {
	t.Helper()
	points := make([]map[string]any, 0, 24)
	for i := 0; i < 24; i++ {
		points = append(points, map[string]any{
			"position": map[string]any{"value": i + 1},
			"quantity": map[string]any{"value": quantity},
			"quality":  map[string]any{"value": quality},
		})
	}
	doc := map[string]any{
		"NotifyValidatedMeasureData_MarketDocument": map[string]any{
			"mRID":                map[string]any{"value": messageID},
			"process.processType": map[string]any{"value": "E23"},
			"createdDateTime":     map[string]any{"value": "2025-03-02T10:00:00Z"},
			"sender_MarketParticipant.mRID": map[string]any{
				"codingScheme": "A10", "value": hubGLN,
			},
			"receiver_MarketParticipant.mRID": map[string]any{
				"codingScheme": "A10", "value": supplierGLN,
			},
			"Series": []map[string]any{{
				"mRID": map[string]any{"value": transactionID},
				"marketEvaluationPoint.mRID": map[string]any{
					"codingScheme": "A10", "value": gsrn,
				},
				"Period": map[string]any{
					"resolution": map[string]any{"value": "PT1H"},
					"timeInterval": map[string]any{
						"start": map[string]any{"value": "2025-03-01T00:00Z"},
						"end":   map[string]any{"value": "2025-03-02T00:00Z"},
					},
					"Point": points,
				},
			}},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

// TestPipelineSettlesMeteredDayAndCorrectsIt walks the full life of one
// metered day: master data and supply arrive, prices and links arrive,
// spot quotes are ingested, readings arrive and are acknowledged, the
// engine settles them, the invoicing system picks the result up, and a
// revised delivery after invoicing yields a delta settlement.
func TestPipelineSettlesMeteredDayAndCorrectsIt(t *testing.T) {
	p := newPipeline(t, "pipeline_full")
	ctx := context.Background()

	p.deliver(t, []byte(masterDataDoc))
	p.deliver(t, []byte(supplierChangeDoc))
	p.deliver(t, []byte(chargeCatalogDoc))
	p.deliver(t, []byte(flatRatesDoc))
	p.deliver(t, netTariffRatesDoc(t))
	p.deliver(t, []byte(chargeLinksDoc))
	p.ingestSpotDay(t, "500")

	mp := p.meteringPoint(t)
	require.Equal(t, "344", mp.GridAreaCode)

	supply, err := p.supplies.ActiveAt(ctx, mp.ID, flowPeriodStart)
	require.NoError(t, err)
	require.NotNil(t, supply)

	p.deliver(t, meteredDataDoc(t, "MSG-METER-1", "TX-METER-1", flowGSRN, "1.000", "A03"))

	var series tsdomain.TimeSeries
	require.NoError(t, p.db.Where("metering_point_id = ? AND is_latest = ?", mp.ID, true).First(&series).Error)
	require.Equal(t, 1, series.Version)
	require.Equal(t, 24, series.PointCount)

	// The applied readings owe the hub a receipt.
	var acks []outboxdomain.OutboxMessage
	require.NoError(t, p.db.Find(&acks).Error)
	require.Len(t, acks, 1)
	require.Equal(t, "AcknowledgeMeasureData_MarketDocument", acks[0].DocumentType)
	require.Equal(t, supplierGLN, acks[0].SenderGLN)
	require.Equal(t, hubGLN, acks[0].ReceiverGLN)
	require.False(t, acks[0].IsSent)

	require.NoError(t, p.dispatch.RunOnce(ctx))
	var sent outboxdomain.OutboxMessage
	require.NoError(t, p.db.First(&sent, acks[0].ID).Error)
	require.True(t, sent.IsSent)
	require.NotNil(t, sent.SentAt)

	require.NoError(t, p.engine.RunOnce(ctx))

	settlements := p.settlementsFor(t, mp.ID)
	require.Len(t, settlements, 1)
	original := settlements[0]
	require.Equal(t, settlementdomain.StatusCalculated, original.Status)
	require.False(t, original.IsCorrection)
	require.Equal(t, "WO-2025-00001", original.DocumentNumber)
	require.Equal(t, string(market.PricingSpotAddon), original.PricingModel)
	require.Equal(t, market.PriceAreaDK1.String(), original.PriceArea)
	requireDecimal(t, "24.000", original.TotalEnergy)
	// Spot 12.00, margin 0.96, net tariff 9.60, system 1.32, transmission
	// 1.08, tax 18.24.
	requireDecimal(t, "43.20", original.TotalAmount)

	byCharge := p.linesByCharge(t, original.ID)
	require.Len(t, byCharge, 6)
	requireDecimal(t, "12.00", byCharge[settlementdomain.LineSourceSpot+"/"].Amount)
	requireDecimal(t, "0.500000", byCharge[settlementdomain.LineSourceSpot+"/"].UnitPrice)
	requireDecimal(t, "0.96", byCharge[settlementdomain.LineSourceMargin+"/"].Amount)
	requireDecimal(t, "9.60", byCharge[settlementdomain.LineSourceTariff+"/NT-2025"].Amount)
	require.Equal(t, gridGLN, byCharge[settlementdomain.LineSourceTariff+"/NT-2025"].OwnerGLN)
	requireDecimal(t, "1.32", byCharge[settlementdomain.LineSourceTariff+"/ST-2025"].Amount)
	requireDecimal(t, "1.08", byCharge[settlementdomain.LineSourceTariff+"/TR-2025"].Amount)
	requireDecimal(t, "18.24", byCharge[settlementdomain.LineSourceTariff+"/EA-001"].Amount)
	require.Equal(t, energinetGLN, byCharge[settlementdomain.LineSourceTariff+"/EA-001"].OwnerGLN)

	pending, err := p.settlements.Pending(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, original.ID, pending[0].Settlement.ID)

	_, err = p.settlements.Invoice(ctx, original.ID, "INV-2025-0001", p.now)
	require.NoError(t, err)

	// The grid company revises the day upward after invoicing.
	p.deliver(t, meteredDataDoc(t, "MSG-METER-2", "TX-METER-2", flowGSRN, "1.250", "A05"))
	require.NoError(t, p.engine.RunOnce(ctx))

	settlements = p.settlementsFor(t, mp.ID)
	require.Len(t, settlements, 2)
	adjusted, correction := settlements[0], settlements[1]

	require.Equal(t, original.ID, adjusted.ID)
	require.Equal(t, settlementdomain.StatusAdjusted, adjusted.Status)

	require.True(t, correction.IsCorrection)
	require.Equal(t, settlementdomain.StatusCalculated, correction.Status)
	require.NotNil(t, correction.PreviousSettlementID)
	require.Equal(t, original.ID, *correction.PreviousSettlementID)
	require.Equal(t, 2, correction.TimeSeriesVersion)
	require.Equal(t, "WO-2025-00002", correction.DocumentNumber)
	requireDecimal(t, "6.000", correction.TotalEnergy)
	requireDecimal(t, "10.80", correction.TotalAmount)

	deltas := p.linesByCharge(t, correction.ID)
	requireDecimal(t, "3.00", deltas[settlementdomain.LineSourceSpot+"/"].Amount)
	requireDecimal(t, "0.24", deltas[settlementdomain.LineSourceMargin+"/"].Amount)
	requireDecimal(t, "2.40", deltas[settlementdomain.LineSourceTariff+"/NT-2025"].Amount)
	requireDecimal(t, "0.33", deltas[settlementdomain.LineSourceTariff+"/ST-2025"].Amount)
	requireDecimal(t, "0.27", deltas[settlementdomain.LineSourceTariff+"/TR-2025"].Amount)
	requireDecimal(t, "4.56", deltas[settlementdomain.LineSourceTariff+"/EA-001"].Amount)

	pending, err = p.settlements.Pending(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, correction.ID, pending[0].Settlement.ID)
}

// TestPipelineDropsMeteredDataForUnknownPoint verifies readings for a
// point we never heard of are dropped cleanly: processed, no series, no
// receipt.
func TestPipelineDropsMeteredDataForUnknownPoint(t *testing.T) {
	p := newPipeline(t, "pipeline_unknown_gsrn")

	stored := p.deliver(t, meteredDataDoc(t, "MSG-STRAY-1", "TX-STRAY-1", unknownGSRN, "1.000", "A03"))
	require.True(t, stored.IsProcessed)

	var seriesCount, ackCount int64
	require.NoError(t, p.db.Model(&tsdomain.TimeSeries{}).Count(&seriesCount).Error)
	require.NoError(t, p.db.Model(&outboxdomain.OutboxMessage{}).Count(&ackCount).Error)
	require.Zero(t, seriesCount)
	require.Zero(t, ackCount)
}

// TestPipelineRejectionLeavesNoSupply verifies a rejected supplier change
// is recorded without creating a customer relationship.
func TestPipelineRejectionLeavesNoSupply(t *testing.T) {
	p := newPipeline(t, "pipeline_rejection")
	ctx := context.Background()

	p.deliver(t, []byte(masterDataDoc))
	p.deliver(t, []byte(supplierRejectionDoc))

	mp := p.meteringPoint(t)
	_, err := p.supplies.ActiveAt(ctx, mp.ID, flowPeriodStart)
	require.ErrorIs(t, err, supplydomain.ErrNoActiveSupply)

	var supplyCount int64
	require.NoError(t, p.db.Model(&supplydomain.Supply{}).Count(&supplyCount).Error)
	require.Zero(t, supplyCount)
}

// TestPipelineDeduplicatesReplayedDocuments verifies the hub replaying a
// document does not double-apply it.
func TestPipelineDeduplicatesReplayedDocuments(t *testing.T) {
	p := newPipeline(t, "pipeline_dedupe")
	ctx := context.Background()

	p.deliver(t, []byte(masterDataDoc))

	_, err := p.inbox.Enqueue(ctx, []byte(masterDataDoc))
	require.ErrorIs(t, err, inboxdomain.ErrDuplicateMessage)

	var count int64
	require.NoError(t, p.db.Model(&inboxdomain.InboxMessage{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
