package auth

import (
	"context"
	"sync"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// Store は1クライアント分の認証状態（現在のアイデンティティ）を保持するセッションストア。
// サインイン・サインアウトのたびにアイデンティティを丸ごと差し替え、
// 購読者に変更を通知する。プロセス（クライアント）につき1インスタンスを想定する。
type Store struct {
	service *Service

	mu          sync.Mutex
	current     *model.User
	session     *model.Session
	subscribers map[int]func(*model.User)
	nextSubID   int
}

// NewStore はStoreを生成する。初期状態は未認証（identity = nil）。
func NewStore(service *Service) *Store {
	return &Store{
		service:     service,
		subscribers: make(map[int]func(*model.User)),
	}
}

// Subscribe は認証状態の変更購読を登録する。
// コールバックは登録時に現在の状態で1回、以降は変更のたびに呼ばれる。
// 返される関数で購読を解除する。解除しないままにすると購読がリークする。
func (st *Store) Subscribe(callback func(*model.User)) func() {
	st.mu.Lock()
	id := st.nextSubID
	st.nextSubID++
	st.subscribers[id] = callback
	current := st.current
	st.mu.Unlock()

	// 現在の状態で即時に1回通知する
	callback(current)

	return func() {
		st.mu.Lock()
		delete(st.subscribers, id)
		st.mu.Unlock()
	}
}

// Current は現在のアイデンティティを返す。未認証の場合はnil。
func (st *Store) Current() *model.User {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.current
}

// SessionID は現在のセッションIDを返す。未認証の場合は空文字列。
func (st *Store) SessionID() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session == nil {
		return ""
	}
	return st.session.ID
}

// SignInAnonymously は匿名サインインでアイデンティティを確立する。
// 失敗した場合はidentity = nilのまま処理を続行できるようエラーのみを返す。
func (st *Store) SignInAnonymously(ctx context.Context) error {
	user, session, err := st.service.SignInAnonymously(ctx)
	if err != nil {
		return err
	}
	st.replace(user, session)
	return nil
}

// SignInWithToken はトークンでアイデンティティを確立する。
func (st *Store) SignInWithToken(ctx context.Context, token string) error {
	user, session, err := st.service.SignInWithToken(ctx, token)
	if err != nil {
		return err
	}
	st.replace(user, session)
	return nil
}

// Login はメール/パスワードで認証し、現在のアイデンティティを差し替える。
func (st *Store) Login(ctx context.Context, email, password string) error {
	user, session, err := st.service.Login(ctx, email, password)
	if err != nil {
		return err
	}
	st.replace(user, session)
	return nil
}

// Register はメール/パスワードで新規登録し、現在のアイデンティティを差し替える。
func (st *Store) Register(ctx context.Context, email, password string) error {
	user, session, err := st.service.Register(ctx, email, password)
	if err != nil {
		return err
	}
	st.replace(user, session)
	return nil
}

// Logout は現在のアイデンティティをクリアする。冪等。
func (st *Store) Logout(ctx context.Context) error {
	st.mu.Lock()
	session := st.session
	st.mu.Unlock()

	if session != nil {
		if err := st.service.Logout(ctx, session.ID); err != nil {
			return err
		}
	}

	st.replace(nil, nil)
	return nil
}

// replace はアイデンティティを丸ごと差し替え、全購読者に通知する。
func (st *Store) replace(user *model.User, session *model.Session) {
	st.mu.Lock()
	st.current = user
	st.session = session
	callbacks := make([]func(*model.User), 0, len(st.subscribers))
	for _, cb := range st.subscribers {
		callbacks = append(callbacks, cb)
	}
	st.mu.Unlock()

	for _, cb := range callbacks {
		cb(user)
	}
}
