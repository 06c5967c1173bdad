package rules

import "github.com/santhosh-tekuri/jsonschema/v5"

// Descriptor files are flat symbol → record maps. The schemas reject missing
// required numerics, wrong types, and negative values where a positive one is
// required.
const tradingRulesSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["symbol", "min_quantity", "quantity_step", "min_price",
                 "price_tick", "price_precision", "quantity_precision"],
    "properties": {
      "symbol": {"type": "string", "minLength": 1},
      "min_quantity": {"type": "number", "minimum": 0},
      "quantity_step": {"type": "number", "exclusiveMinimum": 0},
      "min_price": {"type": "number", "minimum": 0},
      "price_tick": {"type": "number", "exclusiveMinimum": 0},
      "price_precision": {"type": "integer", "minimum": 0},
      "quantity_precision": {"type": "integer", "minimum": 0},
      "max_leverage": {"type": "number", "exclusiveMinimum": 0}
    }
  }
}`

const commissionRatesSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["maker_fee_rate", "taker_fee_rate"],
    "properties": {
      "maker_fee_rate": {"type": "number", "minimum": 0},
      "taker_fee_rate": {"type": "number", "minimum": 0}
    }
  }
}`

var (
	tradingSchema    = jsonschema.MustCompileString("trading_rules.json", tradingRulesSchema)
	commissionSchema = jsonschema.MustCompileString("commission_rates.json", commissionRatesSchema)
)
