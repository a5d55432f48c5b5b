// Package ragchat embeds the document question-answering pipeline in a Go
// program: no HTTP server, the same ingestion, retrieval, and completion
// stack the ragd service runs.
//
//	client, _ := ragchat.New(
//	    ragchat.WithOpenAI(apiKey, "https://openrouter.ai/api/v1"),
//	    ragchat.WithEmbeddingModel("text-embedding-3-small", 384),
//	    ragchat.WithModels("amazon/nova-2-lite", "meta-llama/llama-3.2-3b-instruct:free"),
//	    ragchat.WithPersistentIndex("./data/index"),
//	)
//
//	client.Upload(ctx, "conv-1", []ragchat.File{{Name: "notes.md", Data: data}})
//	answer, _ := client.Ask(ctx, "conv-1", "What do the notes say about Go?")
//	fmt.Println(answer.Text)
package ragchat
