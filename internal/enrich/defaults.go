package enrich

// DefaultTopics returns the fixed topic list used when enrichment fails.
func DefaultTopics() []TopicCandidate {
	return []TopicCandidate{
		{Name: "Machine Learning", Description: "A subset of AI that enables systems to learn from data", Score: 0.9, Origin: OriginDefault},
		{Name: "Neural Networks", Description: "Computing systems inspired by biological neural networks", Score: 0.9, Origin: OriginDefault},
		{Name: "Deep Learning", Description: "Machine learning using multi-layer neural networks", Score: 0.9, Origin: OriginDefault},
		{Name: "Natural Language Processing", Description: "AI techniques for understanding and generating human language", Score: 0.9, Origin: OriginDefault},
	}
}

// DefaultTools returns the fixed tool list used when enrichment fails.
func DefaultTools() []ToolCandidate {
	return []ToolCandidate{
		{Name: "TensorFlow", Description: "An end-to-end open source platform for machine learning", Category: "Machine Learning Framework", URL: "https://www.tensorflow.org/", Score: 0.95, Origin: OriginDefault},
		{Name: "PyTorch", Description: "An open source machine learning framework", Category: "Machine Learning Framework", URL: "https://pytorch.org/", Score: 0.95, Origin: OriginDefault},
		{Name: "Hugging Face", Description: "A platform and library collection for natural language processing models", Category: "NLP Framework", URL: "https://huggingface.co/", Score: 0.9, Origin: OriginDefault},
		{Name: "OpenCV", Description: "An open source computer vision library", Category: "Computer Vision Library", URL: "https://opencv.org/", Score: 0.95, Origin: OriginDefault},
	}
}
