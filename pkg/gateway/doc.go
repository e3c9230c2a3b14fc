// Package gateway serves the storage calls of an sdk.Storage over HTTP.
//
// Routes:
//
//	POST /api/upload/file                 multipart field "file"
//	POST /api/upload/json                 {"data": ..., "fileName": "..."}
//	GET  /api/download/file/{rootHash}    ?fileName=
//	GET  /api/download/json/{rootHash}    ?fileName=
//	GET  /api/download-transaction        ?rootHash=
//	POST /api/upload-transaction          transaction record
//	POST /api/kv                          {"transactionHash", "walletAddress", "action"}
//	GET  /api/kv                          ?transactionHash=
//	GET  /api/health
//
// Responses use the model.Response envelope. Validation errors are 400,
// unknown roots 404, content that is not JSON 422, and an unreachable storage
// network 503 with a generic retry message.
package gateway
