// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, storage, generation, render, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredential  = "AUTH_INVALID_CREDENTIAL"
	ErrCodeEmailExists        = "AUTH_EMAIL_EXISTS"
	ErrCodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodePitchNotFound      = "PITCH_NOT_FOUND"
	ErrCodeStorageFailed      = "STORAGE_FAILED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeInvalidTone        = "INVALID_TONE"
	ErrCodeGenerationNetwork  = "GENERATION_NETWORK"
	ErrCodeGenerationEmpty    = "GENERATION_EMPTY_RESPONSE"
	ErrCodeGenerationService  = "GENERATION_SERVICE_ERROR"
	ErrCodeGenerationTimeout  = "GENERATION_TIMEOUT"
	ErrCodeRenderFailed       = "RENDER_FAILED"
	ErrCodeEmptyContent       = "EMPTY_CONTENT"
	ErrCodeInvalidDraftState  = "INVALID_DRAFT_STATE"
)

// NewInvalidCredentialError は認証情報不一致エラーを生成する。
func NewInvalidCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailExistsError はメールアドレス重複エラーを生成する。
func NewEmailExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailExists,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは8文字以上で指定してください。",
		Category: "auth",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewAuthFailedError は認証サービス自体の失敗エラーを生成する。
func NewAuthFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  fmt.Sprintf("認証処理に失敗しました: %s", reason),
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewPitchNotFoundError はピッチ未検出エラーを生成する。
// 他ユーザーが所有するピッチへのアクセスもこのエラーになる。
func NewPitchNotFoundError(pitchID string) *APIError {
	return &APIError{
		Code:     ErrCodePitchNotFound,
		Message:  fmt.Sprintf("指定されたピッチが見つかりません: %s", pitchID),
		Category: "storage",
		Action:   "ピッチIDを確認してください。",
	}
}

// NewStorageFailedError は永続化層の失敗エラーを生成する。
func NewStorageFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailed,
		Message:  fmt.Sprintf("データの保存に失敗しました: %s", reason),
		Category: "storage",
		Action:   "下書きは保持されています。しばらく待ってから再度保存してください。",
	}
}

// NewValidationFailedError はブリーフの入力不備エラーを生成する。
func NewValidationFailedError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力が不足しています: %s", field),
		Category: "validation",
		Action:   "タイトル・説明・ターゲット・語調の全てを入力してください。",
	}
}

// NewInvalidToneError は未定義の語調が指定された場合のエラーを生成する。
func NewInvalidToneError(tone string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTone,
		Message:  fmt.Sprintf("無効な語調です: %s", tone),
		Category: "validation",
		Action:   "語調には Persuasive、Formal、Fun、Inspiring のいずれかを指定してください。",
	}
}

// NewGenerationNetworkError は生成APIへの到達失敗エラーを生成する。
func NewGenerationNetworkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeGenerationNetwork,
		Message:  fmt.Sprintf("生成APIへの接続に失敗しました: %s", reason),
		Category: "generation",
		Action:   "ネットワーク接続を確認し、再度生成をお試しください。",
	}
}

// NewGenerationEmptyError は生成APIが空応答を返した場合のエラーを生成する。
func NewGenerationEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeGenerationEmpty,
		Message:  "生成APIからテキストが返されませんでした。",
		Category: "generation",
		Action:   "再度生成をお試しください。",
	}
}

// NewGenerationServiceError は生成API側のエラーを生成する。
func NewGenerationServiceError(status int) *APIError {
	return &APIError{
		Code:     ErrCodeGenerationService,
		Message:  fmt.Sprintf("生成APIがエラーを返しました（ステータス %d）。", status),
		Category: "generation",
		Action:   "しばらく待ってから再度生成をお試しください。",
	}
}

// NewGenerationTimeoutError は生成APIのタイムアウトエラーを生成する。
func NewGenerationTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeGenerationTimeout,
		Message:  "生成APIの応答がタイムアウトしました。",
		Category: "generation",
		Action:   "再度生成をお試しください。入力はそのまま保持されています。",
	}
}

// NewRenderFailedError はPDF出力失敗エラーを生成する。
func NewRenderFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRenderFailed,
		Message:  fmt.Sprintf("PDFの生成に失敗しました: %s", reason),
		Category: "render",
		Action:   "しばらく待ってから再度エクスポートしてください。",
	}
}

// NewEmptyContentError は本文未生成のピッチをエクスポートしようとした場合のエラーを生成する。
func NewEmptyContentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyContent,
		Message:  "ピッチ本文が空のためエクスポートできません。",
		Category: "render",
		Action:   "先にピッチを生成してからエクスポートしてください。",
	}
}

// NewInvalidDraftStateError はライフサイクル上許可されない操作のエラーを生成する。
func NewInvalidDraftStateError(op, state string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDraftState,
		Message:  fmt.Sprintf("現在の状態ではこの操作は実行できません: %s（状態: %s）", op, state),
		Category: "validation",
		Action:   "画面を更新して操作をやり直してください。",
	}
}
