// Package framelai translates dynamically rendered game text in place.
//
// A Session watches the content container of a framed document, groups new
// English text into block-level translation units, resolves each unit through
// a static dictionary, a local cache and finally a remote translator, and
// renders the result when the display mode is "translated". Story links that
// carry numeric shortcuts such as "(2)" keep working after translation: their
// clicks are turned into the matching keyboard events.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/framelai"
//	    "github.com/ZaguanLabs/framelai/cache"
//	    "github.com/ZaguanLabs/framelai/dictionary"
//	    "github.com/ZaguanLabs/framelai/dom"
//	    "github.com/ZaguanLabs/framelai/provider"
//	    "github.com/ZaguanLabs/framelai/storage"
//	)
//
//	func main() {
//	    doc, _ := dom.ParseString(page, dom.WithFrame())
//	    dict := dictionary.New(map[string]string{"robin": "로빈"})
//
//	    p := provider.NewOpenAIProvider(provider.OpenAIConfig{
//	        APIKey: os.Getenv("OPENAI_API_KEY"),
//	    })
//
//	    s, err := framelai.NewSession(doc, p,
//	        framelai.WithDictionary(dict),
//	        framelai.WithStore(cache.NewStore(storage.NewMemory(), cache.WithDictionary(dict))),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := s.Start(context.Background()); err != nil {
//	        log.Fatal(err)
//	    }
//	    defer s.Close(context.Background())
//	}
package framelai
