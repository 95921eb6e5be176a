// Package corpus turns raw text into training batches for the word
// embedding layers.
//
// The pipeline is:
//   - Tokenizer: text -> tokens (whitespace or tiktoken BPE pieces)
//   - Vocab: tokens -> integer keys, dropping rare words
//   - UnigramSampler: negative keys drawn from the smoothed unigram
//     distribution (count^0.75)
//   - Batcher: skip-gram (anchor, positive, negatives, document) samples
//   - Huffman: code paths for the hierarchical softmax output layer
//
// Example usage:
//
//	docs, err := corpus.ReadDocuments(f, corpus.NewWhitespaceTokenizer())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vocab := corpus.BuildVocab(docs, 5)
//	sampler := corpus.NewUnigramSampler(vocab.Counts(), corpus.DefaultSamplingPower)
//	batcher, err := corpus.NewBatcher(vocab.EncodeAll(docs), sampler, corpus.DefaultBatcherConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batch := batcher.Next()
package corpus
