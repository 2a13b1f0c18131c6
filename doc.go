// Package fintalk provides the in-memory money ledger behind the fin
// conversational assistant.
//
// The core types are:
//   - Ledger: two ordered collections of labelled amounts, expenses and
//     incomes, that answer total and balance queries. Totals are recomputed
//     on every query, there is no cached running balance.
//   - Money: an exact decimal amount tagged with an ISO-4217 currency code.
//   - Date and Range: day-level dates with a lenient parser (absolute,
//     month-day and relative forms) and inclusive, optionally open, ranges.
//   - Event and Publisher: the contract used to stream recorded entries to
//     external systems.
//
// The conversational side (transcript, model gateways, tool registry and the
// orchestration loop) lives in the agent package.
package fintalk
