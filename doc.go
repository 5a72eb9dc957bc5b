/*
Package fundtool disburses native currency from a single funding account to
a list of recipients on an EVM compatible network.

The work is split between small packages, leaves first:

  amount       fixed point amounts and unit conversion
  funding      transfer requests and the sources producing them
  batch        grouping of requests and distributor call encoding
  builder      unsigned transaction descriptors and signing
  channel      submission of signed transactions, online or to a file
  distributor  deploy-or-reuse of the batching contract
  dispatch     the engine sequencing everything under a concurrency cap
  stats        counters, progress and the final summary

This package holds what is shared by all of them, which is the logger carried
by a context.

We pass context through context.Context between the engine and its
collaborators. There exist two functions for every XYZ of type T that we
support in Context:

  WithXYZ(Context, T) Context
  GetXYZ(Context) T
*/
package fundtool
