package trivia

// Contract placeholders resolved by the ledger client.
const (
	GamePlaceholder  = "0xTriviaGame"
	AdminPlaceholder = "0xTriviaAdmin"
)

const listQuestionsScript = `
import TriviaGame from 0xTriviaGame

access(all) fun main(): [TriviaGame.Question] {
  let questions: [TriviaGame.Question] = []
  var id: UInt64 = 1
  while true {
    if let question = TriviaGame.getQuestion(id: id) {
      questions.append(question)
      id = id + 1
    } else {
      break
    }
  }
  return questions
}
`

const getQuestionScript = `
import TriviaGame from 0xTriviaGame

access(all) fun main(id: UInt64): TriviaGame.Question? {
  return TriviaGame.getQuestion(id: id)
}
`

const getPlayerStatsScript = `
import TriviaGame from 0xTriviaGame

access(all) fun main(address: Address): TriviaGame.PlayerStats? {
  return TriviaGame.getPlayerStats(address: address)
}
`

const getAnsweredQuestionsScript = `
import TriviaGame from 0xTriviaGame

access(all) fun main(address: Address): [UInt64] {
  return TriviaGame.getAnsweredQuestions(address: address)
}
`

const answerQuestionTransaction = `
import TriviaGame from 0xTriviaGame

transaction(questionId: UInt64, selectedOptionIndex: UInt) {
  prepare(signer: &Account) {
    let isCorrect = TriviaGame.answerQuestion(
      questionId: questionId,
      selectedOptionIndex: selectedOptionIndex,
      signer: signer
    )
    log(isCorrect ? "Correct!" : "Wrong answer")
  }
}
`

const addQuestionTransaction = `
import TriviaAdmin from 0xTriviaAdmin

transaction(
  text: String,
  options: [String],
  correctOptionIndex: UInt,
  category: String,
  difficulty: UInt
) {
  prepare(signer: auth(BorrowValue) &Account) {
    let adminRef = signer.capabilities
      .borrow<&TriviaAdmin.Admin>(/public/TriviaGameAdmin)
      ?? panic("No admin resource found")

    adminRef.addQuestion(
      text: text,
      options: options,
      correctOptionIndex: correctOptionIndex,
      category: category,
      difficulty: difficulty
    )
  }
}
`
