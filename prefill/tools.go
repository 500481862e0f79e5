package prefill

import "github.com/cloudwego/eino/schema"

const (
	toolLookupProfile    = "lookup_client_profile"
	toolLookupNotes      = "lookup_client_notes"
	toolLookupFinancial  = "lookup_financial_history"
	toolExtractDocument  = "extract_document_fields"
	toolGetPreferences   = "get_advisor_preferences"
	toolScoreSuitability = "get_carrier_suitability"
	toolReportResults    = "report_prefill_results"
)

func agentTools() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: toolLookupProfile,
			Desc: "Look up the client's personal record in the CRM: name, date of birth, contact details, address.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"client_id": {
					Type:     schema.String,
					Desc:     "CRM identifier of the client",
					Required: true,
				},
			}),
		},
		{
			Name: toolLookupNotes,
			Desc: "Retrieve CRM notes and activity records for the client. Notes often contain meeting transcripts with financial details.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"client_id": {
					Type:     schema.String,
					Desc:     "CRM identifier of the client",
					Required: true,
				},
			}),
		},
		{
			Name: toolLookupFinancial,
			Desc: "Retrieve prior policy and suitability data for the client: income, net worth, risk tolerance, investment experience.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"client_id": {
					Type:     schema.String,
					Desc:     "CRM identifier of the client",
					Required: true,
				},
			}),
		},
		{
			Name: toolExtractDocument,
			Desc: "Record application fields you have read from the attached document image. Call this after visually extracting values from the document.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"extracted_fields": {
					Type:     schema.Object,
					Desc:     "Field values read from the document, keyed by field name",
					Required: true,
				},
				"document_type": {
					Type: schema.String,
					Desc: "Kind of document the values came from, e.g. drivers_license, statement",
				},
			}),
		},
		{
			Name: toolGetPreferences,
			Desc: "Retrieve the advisor's preference profile: preferred carriers, products, and funding defaults.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"advisor_id": {
					Type:     schema.String,
					Desc:     "Identifier of the advisor",
					Required: true,
				},
			}),
		},
		{
			Name: toolScoreSuitability,
			Desc: "Run the carrier's suitability engine against the client data gathered so far.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"carrier_id": {
					Type:     schema.String,
					Desc:     "Identifier of the carrier",
					Required: true,
				},
				"client_data": {
					Type:     schema.Object,
					Desc:     "Client data gathered so far, keyed by field name",
					Required: true,
				},
			}),
		},
		{
			Name: toolReportResults,
			Desc: "Report the final consolidated results. Call this exactly once, when every relevant source has been consulted.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"known_data": {
					Type:     schema.Object,
					Desc:     "Consolidated field values keyed by application field id",
					Required: true,
				},
				"sources_used": {
					Type:     schema.Array,
					Desc:     "Names of the sources that contributed data",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Required: true,
				},
				"fields_found": {
					Type:     schema.Number,
					Desc:     "Number of distinct fields found",
					Required: true,
				},
				"summary": {
					Type:     schema.String,
					Desc:     "One or two sentences describing what was found and what is still missing",
					Required: true,
				},
			}),
		},
	}
}
