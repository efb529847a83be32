package market

// BusinessProcess identifies a DataHub business process.
type BusinessProcess string

const (
	ProcessSupplyChange    BusinessProcess = "BRS-001"
	ProcessEndOfSupply     BusinessProcess = "BRS-002"
	ProcessShortNoticeSwap BusinessProcess = "BRS-003"
	ProcessErroneousSwitch BusinessProcess = "BRS-004"
	ProcessMasterData      BusinessProcess = "BRS-006"
	ProcessMove            BusinessProcess = "BRS-009"
	ProcessMeteredData     BusinessProcess = "BRS-021"
	ProcessAggregatedData  BusinessProcess = "BRS-023"
	ProcessWholesale       BusinessProcess = "BRS-027"
	ProcessPriceInfo       BusinessProcess = "BRS-031"
	ProcessPriceLink       BusinessProcess = "BRS-037"
	ProcessUnknown         BusinessProcess = ""
)

// Business reasons disambiguating price documents under BRS-031/037.
const (
	ReasonPriceInfo   = "D18"
	ReasonPriceSeries = "D08"
	ReasonPriceLink   = "D17"
)

// processTypeTable is the classifier fallback from the inner
// process.processType code to a business process.
var processTypeTable = map[string]BusinessProcess{
	"E03": ProcessSupplyChange,
	"E20": ProcessEndOfSupply,
	"D34": ProcessShortNoticeSwap,
	"D35": ProcessShortNoticeSwap,
	"D07": ProcessShortNoticeSwap,
	"E04": ProcessErroneousSwitch,
	"E06": ProcessMasterData,
	"E65": ProcessMove,
	"E23": ProcessMeteredData,
	"D04": ProcessAggregatedData,
	"D05": ProcessWholesale,
	"D18": ProcessPriceInfo,
	"D08": ProcessPriceInfo,
	"D17": ProcessPriceLink,
}
