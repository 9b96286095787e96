// Package memory gives a stateless chat endpoint long-term recall.
//
// The flow per chat request:
//
//  1. EvaluateTurnGate checks the client-supplied turn count against the
//     batch size (default 50).
//  2. On a round boundary, a SummaryJob is queued to the SummaryWorker,
//     which extracts Candidate memories via the completion model and
//     persists the ones worth keeping — detached from the chat response.
//  3. The Retriever ranks stored records against the latest user turn by
//     0.7*similarity + 0.3*importance/10 and hands the top results to the
//     caller for prompt injection.
//  4. The live window is trimmed to the keep size (default 10) so the
//     outbound request stays small.
//
// The RetentionJob soft-deletes records past a configurable age. Records
// are never physically removed here; soft deletion is the only mutation
// after creation.
//
// Encoding strategy is fixed at process start: a semantic encoder
// (encoder/onnx, build tag "onnx") or the lexical fallback
// (encoder/lexical). Either way, records without embeddings remain
// reachable through lexical overlap scoring.
package memory
