package tikresolve

// ProjectMetadata builds the normalized metadata of a post.
// Missing sub-records leave their section nil; projection never fails.
func ProjectMetadata(item *PostDetail) *Metadata {
	if item == nil {
		return &Metadata{}
	}
	meta := &Metadata{
		ID:          item.ID,
		Description: item.Desc,
	}
	if v := item.Video; v != nil {
		meta.Video = &VideoMeta{
			Width:    int64(v.Width),
			Height:   int64(v.Height),
			Duration: int64(v.Duration),
		}
	}
	if a := item.Author; a != nil {
		meta.Author = &AuthorMeta{Name: a.Nickname, Username: a.UniqueID}
	}
	if m := item.Music; m != nil {
		meta.Music = &MusicMeta{Name: m.Title, Author: m.AuthorName}
	}
	if s := item.Stats; s != nil {
		meta.Stats = &StatsMeta{
			Likes:    int64(s.DiggCount),
			Shares:   int64(s.ShareCount),
			Comments: int64(s.CommentCount),
			Views:    int64(s.PlayCount),
		}
	}
	return meta
}
