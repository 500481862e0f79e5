package main

// annuitySchema is a trimmed fixed-annuity application: three steps,
// with conditional fields driven by marital status and replacement
// answers.
const annuitySchema = `[
  {
    "step_id": "owner",
    "title": "Owner Information",
    "fields": [
      {"field_id": "first_name", "label": "First Name", "field_type": "text", "required": true,
       "validation": {"min_length": 1, "max_length": 50}},
      {"field_id": "last_name", "label": "Last Name", "field_type": "text", "required": true,
       "validation": {"min_length": 1, "max_length": 50}},
      {"field_id": "date_of_birth", "label": "Date of Birth", "field_type": "date", "required": true},
      {"field_id": "ssn", "label": "Social Security Number", "field_type": "ssn", "required": true},
      {"field_id": "email", "label": "Email Address", "field_type": "email", "required": true},
      {"field_id": "phone", "label": "Phone Number", "field_type": "phone", "required": true},
      {"field_id": "marital_status", "label": "Marital Status", "field_type": "select", "required": true,
       "options": [
         {"value": "single", "label": "Single"},
         {"value": "married", "label": "Married"},
         {"value": "divorced", "label": "Divorced"},
         {"value": "widowed", "label": "Widowed"}
       ]},
      {"field_id": "spouse_name", "label": "Spouse Full Name", "field_type": "text",
       "conditions": [{"field": "marital_status", "op": "eq", "value": "married"}]}
    ]
  },
  {
    "step_id": "financial",
    "title": "Financial Profile",
    "fields": [
      {"field_id": "annual_income", "label": "Annual Income", "field_type": "currency", "required": true,
       "validation": {"min_value": 0}},
      {"field_id": "net_worth", "label": "Net Worth", "field_type": "currency", "required": true,
       "validation": {"min_value": 0}},
      {"field_id": "risk_tolerance", "label": "Risk Tolerance", "field_type": "select", "required": true,
       "options": [
         {"value": "conservative", "label": "Conservative"},
         {"value": "moderate", "label": "Moderate"},
         {"value": "aggressive", "label": "Aggressive"}
       ]}
    ]
  },
  {
    "step_id": "annuity",
    "title": "Annuity Details",
    "fields": [
      {"field_id": "premium_amount", "label": "Initial Premium", "field_type": "currency", "required": true,
       "validation": {"min_value": 5000,
                      "custom_message": "The initial premium must be at least $5,000."}},
      {"field_id": "is_replacement", "label": "Replacing an Existing Policy", "field_type": "checkbox", "required": true},
      {"field_id": "replaced_carrier", "label": "Carrier Being Replaced", "field_type": "text", "required": true,
       "conditions": [{"field": "is_replacement", "op": "eq", "value": true}]},
      {"field_id": "beneficiary_name", "label": "Primary Beneficiary", "field_type": "text", "required": true},
      {"field_id": "beneficiary_relationship", "label": "Beneficiary Relationship", "field_type": "text", "required": true}
    ]
  }
]`
