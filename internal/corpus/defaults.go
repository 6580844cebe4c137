package corpus

// DefaultIntents returns the seed intents written on first start.
func DefaultIntents() *Intents {
	return &Intents{Intents: []Intent{
		{
			Tag:      "greeting",
			Patterns: []string{"hi", "hello", "hey", "good morning", "good evening"},
			Responses: []string{
				"Hello! I'm Sage, how can I help you?",
				"Hi there! Sage at your service!",
				"Hey! What can I do for you today?",
			},
		},
		{
			Tag:      "goodbye",
			Patterns: []string{"bye", "goodbye", "see you", "see you later"},
			Responses: []string{
				"Goodbye! Have a wonderful day!",
				"Take care! Call me if you need anything!",
				"Goodbye! It was nice talking to you!",
			},
		},
		{
			Tag:      "thanks",
			Patterns: []string{"thank you", "thanks", "appreciate it"},
			Responses: []string{
				"You're welcome!",
				"Happy to help!",
				"Anytime! That's what I'm here for!",
			},
		},
		{
			Tag:      "help",
			Patterns: []string{"help", "what can you do", "how do you work"},
			Responses: []string{
				"I'm Sage, your AI assistant! I can help you with tasks like playing music, taking screenshots, controlling your system, and much more. Just ask me what you need!",
				"As Sage, I can assist you with various tasks including system control, music playback, web searches, and more. What would you like me to do?",
			},
		},
		{
			Tag:      "identity",
			Patterns: []string{"who are you", "what's your name", "what are you"},
			Responses: []string{
				"I'm Sage, your intelligent voice assistant! I can help you with various tasks like playing music, opening applications, and more.",
				"My name is Sage, and I'm here to help you with tasks like controlling your computer, playing music, and answering questions!",
				"I'm Sage, a voice-enabled AI assistant designed to make your life easier!",
			},
		},
		{
			Tag:      "ai_info",
			Patterns: []string{"what is ai", "what is artificial intelligence", "explain ai"},
			Responses: []string{
				"AI, or Artificial Intelligence, is technology that enables computers to perform tasks that typically require human intelligence. I'm an AI assistant that can help you with various tasks!",
				"Artificial Intelligence (AI) refers to computer systems that can perform tasks requiring human-like intelligence, such as understanding speech, making decisions, and solving problems. I'm an example of an AI assistant!",
				"AI is a field of computer science focused on creating intelligent machines that can learn and solve problems. I use AI to help you with tasks like playing music, controlling your computer, and answering questions!",
			},
		},
	}}
}

// DefaultSynonyms returns the seed command synonym groups.
func DefaultSynonyms() *Synonyms {
	s := NewSynonyms()
	s.Set("time", []string{"time", "clock", "hour", "current time", "what time"})
	s.Set("open", []string{"open", "launch", "start", "run", "execute"})
	s.Set("close", []string{"close", "exit", "quit", "terminate", "stop"})
	s.Set("play", []string{"play", "start playing", "begin playing", "listen to"})
	s.Set("volume", []string{"volume", "sound", "audio level"})
	s.Set("screenshot", []string{"screenshot", "capture screen", "take picture", "snap"})
	s.Set("refresh", []string{"refresh", "reload", "update", "renew"})
	s.Set("search", []string{"search", "look up", "find", "google", "query"})
	s.Set("train", []string{"train", "teach", "educate", "learn"})
	s.Set("test", []string{"test", "check", "verify", "validate", "try"})
	s.Set("create", []string{"create", "make", "generate", "build", "establish"})
	s.Set("add", []string{"add", "insert", "include", "put in"})
	s.Set("show", []string{"show", "display", "present", "reveal"})
	s.Set("help", []string{"help", "assist", "support", "guide", "aid"})
	return s
}

// DefaultLanguagePatterns returns the seed command and context patterns.
func DefaultLanguagePatterns() *LanguagePatterns {
	lp := NewLanguagePatterns()
	lp.CommandPatterns.Set("time", &CommandPattern{
		Verbs:   []string{"tell", "show", "give", "what"},
		Nouns:   []string{"time", "clock", "hour"},
		Phrases: []string{"what time", "current time", "time now"},
	})
	lp.CommandPatterns.Set("weather", &CommandPattern{
		Verbs:   []string{"check", "tell", "what"},
		Nouns:   []string{"weather", "temperature", "forecast"},
		Phrases: []string{"weather like", "temperature now", "going to rain"},
	})
	lp.CommandPatterns.Set("music", &CommandPattern{
		Verbs:   []string{"play", "start", "begin", "listen"},
		Nouns:   []string{"song", "music", "track", "audio"},
		Phrases: []string{"play song", "start music", "play track"},
	})
	lp.CommandPatterns.Set("system", &CommandPattern{
		Verbs:   []string{"open", "close", "launch", "start", "stop", "terminate"},
		Nouns:   []string{"program", "app", "application", "window"},
		Phrases: []string{"open program", "launch app", "start application"},
	})

	lp.ContextPatterns.Set("time", []string{"now", "current", "today", "tonight", "morning", "evening"})
	lp.ContextPatterns.Set("location", []string{"here", "there", "nearby", "around", "local"})
	lp.ContextPatterns.Set("quantity", []string{"one", "two", "three", "few", "many", "some", "all"})
	return lp
}
