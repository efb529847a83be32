package router

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nordvolt/voltra/internal/clock"
	"github.com/nordvolt/voltra/internal/config"
	customerdomain "github.com/nordvolt/voltra/internal/customer/domain"
	customerrepository "github.com/nordvolt/voltra/internal/customer/repository"
	customerservice "github.com/nordvolt/voltra/internal/customer/service"
	"github.com/nordvolt/voltra/internal/inbox/domain"
	inboxrepository "github.com/nordvolt/voltra/internal/inbox/repository"
	inboxservice "github.com/nordvolt/voltra/internal/inbox/service"
	mpdomain "github.com/nordvolt/voltra/internal/meteringpoint/domain"
	mprepository "github.com/nordvolt/voltra/internal/meteringpoint/repository"
	mpservice "github.com/nordvolt/voltra/internal/meteringpoint/service"
	outboxdomain "github.com/nordvolt/voltra/internal/outbox/domain"
	outboxrepository "github.com/nordvolt/voltra/internal/outbox/repository"
	outboxservice "github.com/nordvolt/voltra/internal/outbox/service"
	pricedomain "github.com/nordvolt/voltra/internal/price/domain"
	pricerepository "github.com/nordvolt/voltra/internal/price/repository"
	priceservice "github.com/nordvolt/voltra/internal/price/service"
	productdomain "github.com/nordvolt/voltra/internal/product/domain"
	productrepository "github.com/nordvolt/voltra/internal/product/repository"
	productservice "github.com/nordvolt/voltra/internal/product/service"
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
	routerGSRN        = "571313180000000005"
	routerSupplierGLN = "5790000701414"
)

type routerHarness struct {
	db     *gorm.DB
	node   *snowflake.Node
	inbox  domain.Service
	worker *Worker
}

func newRouterHarness(t *testing.T, name string, maxAttempts int) *routerHarness {
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
		&tsdomain.TimeSeries{},
		&tsdomain.Observation{},
		&wholesaledomain.AggregatedTimeSeries{},
		&wholesaledomain.WholesaleSettlement{},
		&domain.InboxMessage{},
		&outboxdomain.OutboxMessage{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFixedClock(time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC))

	require.NoError(t, db.Create(&customerdomain.SupplierIdentity{
		ID:     node.Generate().Int64(),
		GLN:    routerSupplierGLN,
		Name:   "Test supplier",
		Status: customerdomain.IdentityActive,
	}).Error)

	cfg := config.Config{
		SupplierGLN:       routerSupplierGLN,
		InboxPollInterval: time.Second,
		InboxBatchSize:    10,
		InboxMaxAttempts:  maxAttempts,
	}

	mpRepo := mprepository.Provide()
	inboxRepo := inboxrepository.Provide()
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
	tsSvc := tsservice.New(tsservice.Params{
		DB: db, Log: log, GenID: node, Repo: tsrepository.Provide(), MPRepo: mpRepo,
	})
	wholesaleSvc := wholesaleservice.New(wholesaleservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: wholesalerepository.Provide(),
	})
	inboxSvc := inboxservice.New(inboxservice.Params{
		DB: db, Log: log, GenID: node, Repo: inboxRepo,
	})
	outboxSvc := outboxservice.New(outboxservice.Params{
		DB: db, Log: log, GenID: node, Repo: outboxrepository.Provide(),
	})

	worker := NewWorker(Params{
		DB: db, Cfg: cfg, Log: log, Clock: clk, Repo: inboxRepo,
		CustomerSvc: customerSvc, SupplySvc: supplySvc, MPSvc: mpSvc,
		TimeSeriesSvc: tsSvc, PriceSvc: priceSvc, WholesaleSvc: wholesaleSvc,
		OutboxSvc: outboxSvc,
	})

	return &routerHarness{db: db, node: node, inbox: inboxSvc, worker: worker}
}

func (h *routerHarness) enqueue(t *testing.T, raw string) *domain.InboxMessage {
	t.Helper()
	msg, err := h.inbox.Enqueue(context.Background(), []byte(raw))
	require.NoError(t, err)
	return msg
}

func (h *routerHarness) reload(t *testing.T, messageID string) *domain.InboxMessage {
	t.Helper()
	msg, err := h.inbox.GetByMessageID(context.Background(), messageID)
	require.NoError(t, err)
	return msg
}

func (h *routerHarness) seedMeteringPoint(t *testing.T) {
	t.Helper()
	require.NoError(t, h.db.Create(&mpdomain.MeteringPoint{
		ID:           h.node.Generate().Int64(),
		GSRN:         routerGSRN,
		Type:         "E17",
		Resolution:   "PT1H",
		GridAreaCode: "344",
	}).Error)
}

func TestRunOnceAppliesMasterData(t *testing.T) {
	h := newRouterHarness(t, "router_masterdata", 5)
	raw := `{
	  "NotifyMeteringPointCharacteristics_MarketDocument": {
	    "mRID": {"value": "msg-md-1"},
	    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
	    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
	    "MktActivityRecord": [{
	      "marketEvaluationPoint.mRID": {"codingScheme": "A10", "value": "571313180000000005"},
	      "marketEvaluationPoint.type": {"value": "E17"},
	      "meterReadingPeriodicity": {"value": "PT1H"},
	      "meteringGridArea_Domain.mRID": {"value": "344"},
	      "validityStart_DateAndOrTime.dateTime": {"value": "2025-01-01T00:00Z"}
	    }]
	  }
	}`
	h.enqueue(t, raw)

	require.NoError(t, h.worker.RunOnce(context.Background()))

	msg := h.reload(t, "msg-md-1")
	require.True(t, msg.IsProcessed)
	require.Empty(t, msg.LastError)
	require.Equal(t, "BRS-006", msg.BusinessProcess)
	require.NotNil(t, msg.ProcessedAt)

	var mp mpdomain.MeteringPoint
	require.NoError(t, h.db.Where("gsrn = ?", routerGSRN).First(&mp).Error)
	require.Equal(t, "344", mp.GridAreaCode)
}

func TestRunOnceDropsSupplyChangeForUnknownPoint(t *testing.T) {
	h := newRouterHarness(t, "router_skip", 5)
	raw := `{
	  "ConfirmRequestChangeOfSupplier_MarketDocument": {
	    "mRID": {"value": "msg-sc-1"},
	    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
	    "MktActivityRecord": [{
	      "marketEvaluationPoint.mRID": {"value": "571313180000000005"},
	      "start_DateAndOrTime.dateTime": {"value": "2025-04-01T00:00Z"},
	      "customer_MarketParticipant.name": {"value": "Jens Hansen"},
	      "customer_MarketParticipant.mRID": {"value": "0101701234"}
	    }]
	  }
	}`
	h.enqueue(t, raw)

	require.NoError(t, h.worker.RunOnce(context.Background()))

	// The point is not ours yet: drop the message, do not retry it.
	msg := h.reload(t, "msg-sc-1")
	require.True(t, msg.IsProcessed)
	require.NotEmpty(t, msg.LastError)
	require.Zero(t, msg.Attempts)

	var supplies int64
	require.NoError(t, h.db.Model(&supplydomain.Supply{}).Count(&supplies).Error)
	require.Zero(t, supplies)
}

func TestRunOnceFailsUnclassifiableDocumentPermanently(t *testing.T) {
	h := newRouterHarness(t, "router_unclassified", 5)
	raw := `{
	  "NotifySolarForecast_MarketDocument": {
	    "mRID": {"value": "msg-uc-1"}
	  }
	}`
	h.enqueue(t, raw)

	require.NoError(t, h.worker.RunOnce(context.Background()))

	msg := h.reload(t, "msg-uc-1")
	require.True(t, msg.IsProcessed)
	require.Contains(t, msg.LastError, "unclassifiable")
}

func TestRunOnceFailsProcessWithoutHandlerPermanently(t *testing.T) {
	h := newRouterHarness(t, "router_nohandler", 5)
	// Short-notice swaps classify (D34) but are handled entirely hub-side.
	raw := `{
	  "ConfirmShortNoticeSwitch_MarketDocument": {
	    "mRID": {"value": "msg-sn-1"},
	    "process.processType": {"value": "D34"}
	  }
	}`
	h.enqueue(t, raw)

	require.NoError(t, h.worker.RunOnce(context.Background()))

	msg := h.reload(t, "msg-sn-1")
	require.True(t, msg.IsProcessed)
	require.Contains(t, msg.LastError, "no handler")
	require.Equal(t, "BRS-003", msg.BusinessProcess)
}

func TestRunOnceRetriesMalformedSeriesUntilDeadLetter(t *testing.T) {
	h := newRouterHarness(t, "router_deadletter", 2)
	h.seedMeteringPoint(t)
	// Point 1 carries no quantity: extraction fails, and retrying cannot
	// fix the document.
	raw := `{
	  "NotifyValidatedMeasureData_MarketDocument": {
	    "mRID": {"value": "msg-bad-1"},
	    "sender_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790001330552"},
	    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
	    "Series": [{
	      "marketEvaluationPoint.mRID": {"value": "571313180000000005"},
	      "Period": {
	        "resolution": {"value": "PT1H"},
	        "timeInterval": {"start": {"value": "2025-03-01T00:00Z"}, "end": {"value": "2025-03-01T01:00Z"}},
	        "Point": [{"position": {"value": 1}}]
	      }
	    }]
	  }
	}`
	h.enqueue(t, raw)
	ctx := context.Background()

	require.NoError(t, h.worker.RunOnce(ctx))
	msg := h.reload(t, "msg-bad-1")
	require.False(t, msg.IsProcessed)
	require.Equal(t, 1, msg.Attempts)
	require.Contains(t, msg.LastError, "missing quantity")

	require.NoError(t, h.worker.RunOnce(ctx))
	msg = h.reload(t, "msg-bad-1")
	require.False(t, msg.IsProcessed)
	require.Equal(t, 2, msg.Attempts)

	// Attempts exhausted: the message is dead-lettered and no longer
	// picked up.
	require.NoError(t, h.worker.RunOnce(ctx))
	msg = h.reload(t, "msg-bad-1")
	require.Equal(t, 2, msg.Attempts)
}

func TestRunOnceSuppressesAckWithoutSender(t *testing.T) {
	h := newRouterHarness(t, "router_noack", 5)
	h.seedMeteringPoint(t)
	raw := `{
	  "NotifyValidatedMeasureData_MarketDocument": {
	    "mRID": {"value": "msg-ns-1"},
	    "receiver_MarketParticipant.mRID": {"codingScheme": "A10", "value": "5790000701414"},
	    "Series": [{
	      "mRID": {"value": "tx-ns-1"},
	      "marketEvaluationPoint.mRID": {"value": "571313180000000005"},
	      "Period": {
	        "resolution": {"value": "PT1H"},
	        "timeInterval": {"start": {"value": "2025-03-01T00:00Z"}, "end": {"value": "2025-03-01T01:00Z"}},
	        "Point": [{"position": {"value": 1}, "quantity": {"value": "1.5"}, "quality": {"value": "A03"}}]
	      }
	    }]
	  }
	}`
	h.enqueue(t, raw)

	require.NoError(t, h.worker.RunOnce(context.Background()))

	msg := h.reload(t, "msg-ns-1")
	require.True(t, msg.IsProcessed)
	require.Empty(t, msg.LastError)

	var series int64
	require.NoError(t, h.db.Model(&tsdomain.TimeSeries{}).Count(&series).Error)
	require.EqualValues(t, 1, series)

	// No sender on the document means nobody to acknowledge.
	var acks int64
	require.NoError(t, h.db.Model(&outboxdomain.OutboxMessage{}).Count(&acks).Error)
	require.Zero(t, acks)
}
