/*
Package batch groups transfer requests into batches and encodes a batch as a
single distributor contract call.

The planner always takes the longest prefix of the remaining requests that
fits the configured batch size. Each batch is then encoded with the most
compact distributor entry point that can express all of its amounts without
losing precision. The smaller the integer width used for the amounts, the
less call data has to be paid for.
*/
package batch
