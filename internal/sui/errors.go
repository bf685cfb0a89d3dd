package sui

import (
	"fmt"
	"regexp"
	"strconv"
)

// MoveAbort is the parsed shape of an on-chain Move runtime abort. The raw
// error string carries `MoveAbort(... Identifier("<module>") ... <code>) in
// command <N>`, which TryParseError extracts into a mnemonic error name per
// the per-module code tables below.
type MoveAbort struct {
	Module     string
	Code       int
	Command    int
	Mnemonic   string
	RawMessage string
}

func (m *MoveAbort) Error() string {
	return fmt.Sprintf("%s (module=%s code=%d command=%d)", m.Mnemonic, m.Module, m.Code, m.Command)
}

// moveAbortPattern matches the abort shape:
//
//	MoveAbort(MoveLocation { ... Identifier("clob_v2") ... }, 5) in command 0
var moveAbortPattern = regexp.MustCompile(`MoveAbort\([^)]*Identifier\("([^"]+)"\).*?,\s*(\d+)\)\s*in command\s*(\d+)`)

// clobV2Codes is the DeepBook-v2 clob_v2 module error table.
var clobV2Codes = map[int]string{
	2:  "INVALID_FEE_RATE_REBATE_RATE",
	3:  "INVALID_ORDER_ID",
	4:  "UNAUTHORIZED_CANCEL",
	5:  "INVALID_PRICE",
	6:  "INVALID_QUANTITY",
	7:  "INSUFFICIENT_BASE_COIN",
	8:  "INSUFFICIENT_QUOTE_COIN",
	9:  "ORDER_CANNOT_BE_FULLY_FILLED",
	10: "ORDER_CANNOT_BE_FULLY_PASSIVE",
	11: "INVALID_TICK_PRICE",
	12: "INVALID_USER",
	13: "NOT_EQUAL",
	14: "INVALID_RESTRICTION",
	16: "INVALID_PAIR",
	18: "INVALID_FEE",
	19: "INVALID_EXPIRE_TIMESTAMP",
	20: "INVALID_TICK_SIZE_LOT_SIZE",
	21: "INVALID_SELF_MATCHING_PREVENTION_ARG",
}

var balanceCodes = map[int]string{
	2: "INSUFFICIENT_BALANCE",
}

var orderInfoCodesV3 = map[int]string{
	0: "INVALID_ORDER_INFO_PRICE",
	1: "INVALID_ORDER_INFO_QUANTITY",
	2: "INVALID_ORDER_INFO_LOT_SIZE",
	3: "INVALID_ORDER_INFO_EXPIRE_TIMESTAMP",
	4: "INVALID_ORDER_INFO_TYPE",
	5: "INVALID_ORDER_INFO_GPO",
	6: "INVALID_ORDER_INFO_STP",
	7: "INVALID_ORDER_INFO_RESTRICTION",
	8: "INVALID_ORDER_INFO_TICK_SIZE",
}

var balanceManagerCodesV3 = map[int]string{
	0: "INVALID_OWNER",
	1: "INVALID_TRADER",
	2: "INVALID_PROOF",
	3: "INSUFFICIENT_FUNDS",
}

var poolCodesV3 = map[int]string{
	9: "INVALID_FEE_TYPE",
}

var stateCodesV3 = map[int]string{
	2: "MAX_OPEN_ORDERS",
}

var dynamicFieldCodesV3 = map[int]string{
	1: "UNUSED_POOL",
}

// moduleTables maps a module identifier to its error code table. v3-only
// modules are additive to the v2 set.
func moduleTables(version ExchangeVersion) map[string]map[int]string {
	tables := map[string]map[int]string{
		"clob_v2": clobV2Codes,
		"balance": balanceCodes,
	}
	if version == V3 {
		tables["order_info"] = orderInfoCodesV3
		tables["balance_manager"] = balanceManagerCodesV3
		tables["pool"] = poolCodesV3
		tables["state"] = stateCodesV3
		tables["dynamic_field"] = dynamicFieldCodesV3
	}
	return tables
}

// TryParseError attempts to parse a raw RPC error string as a Move abort.
// It returns nil, false when the string does not match the abort shape at
// all. The parse is total on well-formed strings: whenever the pattern
// matches AND the module/code pair is
// present in the table, a non-nil MoveAbort with a non-empty Mnemonic is
// returned. A matching pattern whose module/code is not in the table still
// returns a MoveAbort, with Mnemonic set to an "UNKNOWN_ABORT" fallback so
// callers always have a concrete type to branch on.
func TryParseError(raw string, version ExchangeVersion) (*MoveAbort, bool) {
	m := moveAbortPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	module := m[1]
	code, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, false
	}
	command, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, false
	}

	mnemonic := "UNKNOWN_ABORT"
	if table, ok := moduleTables(version)[module]; ok {
		if name, ok := table[code]; ok {
			mnemonic = name
		}
	}

	return &MoveAbort{
		Module:     module,
		Code:       code,
		Command:    command,
		Mnemonic:   mnemonic,
		RawMessage: raw,
	}, true
}

// IsFinalityTimeout reports whether an RPC error string is the chain's own
// "transaction timed out before reaching finality" message, the trigger
// for the resource-poisoning path.
func IsFinalityTimeout(raw string) bool {
	return regexp.MustCompile(`Transaction timed out before reaching finality`).MatchString(raw)
}
