package scoring

type Scorer interface {
	Score(req Request) Result
}
